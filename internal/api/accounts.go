/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"net/mail"

	"github.com/friendsincode/cronoapp/internal/auth"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := models.NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_email")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.writeServiceError(w, r, err, "hash_password")
		return
	}

	user := &models.User{Email: email, Password: hash}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "email_taken")
			return
		}
		a.writeServiceError(w, r, err, "create_user")
		return
	}

	a.logger.Info().Str("user_id", user.ID).Msg("user registered")
	a.writeSession(w, r, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := a.store.UserByEmail(r.Context(), models.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		a.writeServiceError(w, r, err, "login")
		return
	}
	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	a.writeSession(w, r, http.StatusOK, user)
}

func (a *API) writeSession(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := auth.Issue(a.jwtSecret, auth.Claims{UserID: user.ID, Email: user.Email}, a.jwtTTL)
	if err != nil {
		a.writeServiceError(w, r, err, "issue_token")
		return
	}
	writeJSON(w, status, sessionResponse{Token: token, User: user})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := a.store.UserByID(r.Context(), currentUser(r))
	if err != nil {
		a.writeServiceError(w, r, err, "me")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
