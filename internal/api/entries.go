/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/cronoapp/internal/calendar"
	"github.com/friendsincode/cronoapp/internal/models"
)

// parseRange reads RFC 3339 start and end query parameters.
func parseRange(r *http.Request) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (a *API) handleEntriesList(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_range")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "invalid_range")
		return
	}

	entries, err := a.store.EntriesByRange(r.Context(), currentUser(r), start, end)
	if err != nil {
		a.writeServiceError(w, r, err, "list_entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleEntriesCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActivityID string    `json:"activity_id"`
		StartTime  time.Time `json:"start_time"`
		EndTime    time.Time `json:"end_time"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ActivityID == "" {
		writeError(w, http.StatusBadRequest, "activity_id_required")
		return
	}

	entry, err := a.tracker.AddManual(r.Context(), currentUser(r), req.ActivityID, req.StartTime, req.EndTime)
	if err != nil {
		a.writeServiceError(w, r, err, "create_entry")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleEntriesUpdate(w http.ResponseWriter, r *http.Request) {
	var upd models.TimeEntryUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	entry, err := a.tracker.Update(r.Context(), currentUser(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		a.writeServiceError(w, r, err, "update_entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleEntriesDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.tracker.Delete(r.Context(), currentUser(r), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, r, err, "delete_entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleEntriesMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeltaMinutes int `json:"delta_minutes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := a.calendar.Move(r.Context(), currentUser(r), chi.URLParam(r, "id"), req.DeltaMinutes)
	if err != nil {
		a.writeServiceError(w, r, err, "move_entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleEntriesAdjust(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Edge         calendar.Edge `json:"edge"`
		DeltaMinutes int           `json:"delta_minutes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := a.calendar.Adjust(r.Context(), currentUser(r), chi.URLParam(r, "id"), req.Edge, req.DeltaMinutes)
	if err != nil {
		a.writeServiceError(w, r, err, "adjust_entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleEntriesResize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DurationMinutes int `json:"duration_minutes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := a.calendar.Resize(r.Context(), currentUser(r), chi.URLParam(r, "id"), req.DurationMinutes)
	if err != nil {
		a.writeServiceError(w, r, err, "resize_entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleTimerActive(w http.ResponseWriter, r *http.Request) {
	entry, err := a.tracker.Active(r.Context(), currentUser(r))
	if err != nil {
		a.writeServiceError(w, r, err, "active_timer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (a *API) handleTimerStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActivityID string `json:"activity_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ActivityID == "" {
		writeError(w, http.StatusBadRequest, "activity_id_required")
		return
	}

	entry, err := a.tracker.Start(r.Context(), currentUser(r), req.ActivityID)
	if err != nil {
		a.writeServiceError(w, r, err, "start_timer")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleTimerStop stops the given entry, or the running one when the body
// names none.
func (a *API) handleTimerStop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntryID string `json:"entry_id"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	userID := currentUser(r)
	if req.EntryID == "" {
		active, err := a.tracker.Active(r.Context(), userID)
		if err != nil {
			a.writeServiceError(w, r, err, "active_timer")
			return
		}
		if active == nil {
			writeError(w, http.StatusConflict, "not_running")
			return
		}
		req.EntryID = active.ID
	}

	res, err := a.tracker.Stop(r.Context(), userID, req.EntryID)
	if err != nil {
		a.writeServiceError(w, r, err, "stop_timer")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
