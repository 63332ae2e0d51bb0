/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/reports"
)

func (a *API) handleCalendarDay(w http.ResponseWriter, r *http.Request) {
	loc, err := a.requestLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_timezone")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", chi.URLParam(r, "date"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	view, err := a.calendar.Day(r.Context(), currentUser(r), date, loc)
	if err != nil {
		a.writeServiceError(w, r, err, "calendar_day")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleReport builds the report for the period containing ?date= (default today).
func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	period, err := reports.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		a.writeServiceError(w, r, err, "report")
		return
	}
	loc, err := a.requestLocation(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_timezone")
		return
	}

	now := a.now().In(loc)
	anchor := now
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		anchor = day
	}

	userID := currentUser(r)
	language := models.DefaultLanguage
	if a.settings != nil {
		language = a.settings.Language(r.Context(), userID)
	}

	report, err := a.reports.Build(r.Context(), reports.Request{
		UserID:   userID,
		Period:   period,
		Anchor:   anchor,
		Now:      now,
		Location: loc,
		Language: language,
	})
	if err != nil {
		a.writeServiceError(w, r, err, "report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	st, err := a.settings.Get(r.Context(), currentUser(r))
	if err != nil {
		a.writeServiceError(w, r, err, "get_settings")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var upd models.SettingsUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	st, err := a.settings.Update(r.Context(), currentUser(r), upd)
	if err != nil {
		a.writeServiceError(w, r, err, "update_settings")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleTemplatesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.templates.Catalog().List())
}

func (a *API) handleTemplatesApply(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	res, err := a.templates.Apply(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err, "apply_template")
		return
	}
	if err := a.reports.Invalidate(r.Context(), userID); err != nil {
		a.logger.Debug().Err(err).Str("user_id", userID).Msg("failed to invalidate reports")
	}
	writeJSON(w, http.StatusCreated, res)
}
