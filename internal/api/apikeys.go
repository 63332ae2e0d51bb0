/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/cronoapp/internal/auth"
	"github.com/friendsincode/cronoapp/internal/models"
)

func (a *API) handleAPIKeysList(w http.ResponseWriter, r *http.Request) {
	keys, err := a.store.ListAPIKeys(r.Context(), currentUser(r))
	if err != nil {
		a.writeServiceError(w, r, err, "list_api_keys")
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (a *API) handleAPIKeysCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name"`
		ExpiresInDays int    `json:"expires_in_days"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	if req.ExpiresInDays != 0 && !slices.Contains(auth.APIKeyExpirationDays, req.ExpiresInDays) {
		writeError(w, http.StatusBadRequest, "invalid_expiration")
		return
	}

	userID := currentUser(r)
	plaintext, key, err := auth.GenerateAPIKey(userID, req.Name, time.Duration(req.ExpiresInDays)*24*time.Hour)
	if err != nil {
		a.writeServiceError(w, r, err, "generate_api_key")
		return
	}
	if err := a.store.CreateAPIKey(r.Context(), key); err != nil {
		a.writeServiceError(w, r, err, "create_api_key")
		return
	}

	a.logger.Info().Str("user_id", userID).Str("key_prefix", key.KeyPrefix).Msg("api key created")
	writeJSON(w, http.StatusCreated, struct {
		Key    string         `json:"key"`
		APIKey *models.APIKey `json:"api_key"`
	}{Key: plaintext, APIKey: key})
}

func (a *API) handleAPIKeysRevoke(w http.ResponseWriter, r *http.Request) {
	if err := a.store.RevokeAPIKey(r.Context(), currentUser(r), chi.URLParam(r, "id"), a.now()); err != nil {
		a.writeServiceError(w, r, err, "revoke_api_key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
