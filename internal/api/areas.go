/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store"
)

// defaultColor is used when an area is created without a color.
const defaultColor = "#06B6D4"

func (a *API) handleAreasList(w http.ResponseWriter, r *http.Request) {
	areas, err := a.store.ListAreas(r.Context(), currentUser(r))
	if err != nil {
		a.writeServiceError(w, r, err, "list_areas")
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

func (a *API) handleAreasCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	if req.Color == "" {
		req.Color = defaultColor
	}

	userID := currentUser(r)
	area := &models.LifeArea{UserID: userID, Name: req.Name, Color: req.Color}
	if err := a.store.CreateArea(r.Context(), area); err != nil {
		a.writeServiceError(w, r, err, "create_area")
		return
	}

	a.dataChanged(r.Context(), events.EventAreaChanged, events.Payload{"user_id": userID, "area_id": area.ID, "action": "created"})
	writeJSON(w, http.StatusCreated, area)
}

func (a *API) handleAreasUpdate(w http.ResponseWriter, r *http.Request) {
	var upd models.LifeAreaUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	userID := currentUser(r)
	area, err := a.store.UpdateArea(r.Context(), userID, chi.URLParam(r, "id"), upd)
	if err != nil {
		a.writeServiceError(w, r, err, "update_area")
		return
	}

	a.dataChanged(r.Context(), events.EventAreaChanged, events.Payload{"user_id": userID, "area_id": area.ID, "action": "updated"})
	writeJSON(w, http.StatusOK, area)
}

func (a *API) handleAreasDelete(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	id := chi.URLParam(r, "id")
	stats, err := a.store.DeleteArea(r.Context(), userID, id)
	if err != nil {
		a.writeServiceError(w, r, err, "delete_area")
		return
	}

	a.logger.Info().
		Str("user_id", userID).
		Str("area_id", id).
		Int64("activities", stats.Activities).
		Int64("entries", stats.Entries).
		Msg("area deleted")

	a.dataChanged(r.Context(), events.EventAreaChanged, events.Payload{"user_id": userID, "area_id": id, "action": "deleted"})
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleActivitiesList(w http.ResponseWriter, r *http.Request) {
	activities, err := a.store.ListActivities(r.Context(), currentUser(r))
	if err != nil {
		a.writeServiceError(w, r, err, "list_activities")
		return
	}
	if areaID := r.URL.Query().Get("area_id"); areaID != "" {
		filtered := activities[:0]
		for _, act := range activities {
			if act.LifeAreaID == areaID {
				filtered = append(filtered, act)
			}
		}
		activities = filtered
	}
	writeJSON(w, http.StatusOK, activities)
}

func (a *API) handleActivitiesCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Color      string `json:"color"`
		LifeAreaID string `json:"life_area_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	userID := currentUser(r)
	area, err := a.store.GetArea(r.Context(), userID, req.LifeAreaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "area_not_found")
			return
		}
		a.writeServiceError(w, r, err, "get_area")
		return
	}
	if req.Color == "" {
		req.Color = area.Color
	}

	activity := &models.Activity{UserID: userID, LifeAreaID: area.ID, Name: req.Name, Color: req.Color}
	if err := a.store.CreateActivity(r.Context(), activity); err != nil {
		a.writeServiceError(w, r, err, "create_activity")
		return
	}

	a.dataChanged(r.Context(), events.EventActivityChanged, events.Payload{"user_id": userID, "activity_id": activity.ID, "action": "created"})
	writeJSON(w, http.StatusCreated, activity)
}

func (a *API) handleActivitiesUpdate(w http.ResponseWriter, r *http.Request) {
	var upd models.ActivityUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	userID := currentUser(r)
	if upd.LifeAreaID != nil {
		if _, err := a.store.GetArea(r.Context(), userID, *upd.LifeAreaID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "area_not_found")
				return
			}
			a.writeServiceError(w, r, err, "get_area")
			return
		}
	}

	activity, err := a.store.UpdateActivity(r.Context(), userID, chi.URLParam(r, "id"), upd)
	if err != nil {
		a.writeServiceError(w, r, err, "update_activity")
		return
	}

	a.dataChanged(r.Context(), events.EventActivityChanged, events.Payload{"user_id": userID, "activity_id": activity.ID, "action": "updated"})
	writeJSON(w, http.StatusOK, activity)
}

func (a *API) handleActivitiesDelete(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	id := chi.URLParam(r, "id")
	stats, err := a.store.DeleteActivity(r.Context(), userID, id)
	if err != nil {
		a.writeServiceError(w, r, err, "delete_activity")
		return
	}

	a.dataChanged(r.Context(), events.EventActivityChanged, events.Payload{"user_id": userID, "activity_id": id, "action": "deleted"})
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) publish(eventType events.EventType, payload events.Payload) {
	if a.bus != nil {
		a.bus.Publish(eventType, payload)
	}
}

// dataChanged drops the user's cached reports before publishing, so the next
// request on this instance reads fresh data. Other instances rely on the event.
func (a *API) dataChanged(ctx context.Context, eventType events.EventType, payload events.Payload) {
	if a.reports != nil {
		if err := a.reports.Invalidate(ctx, payload.UserID()); err != nil {
			a.logger.Debug().Err(err).Str("user_id", payload.UserID()).Msg("failed to invalidate reports")
		}
	}
	a.publish(eventType, payload)
}
