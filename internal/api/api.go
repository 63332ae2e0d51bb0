/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface of the tracker.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/auth"
	"github.com/friendsincode/cronoapp/internal/calendar"
	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/export"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/reports"
	"github.com/friendsincode/cronoapp/internal/settings"
	"github.com/friendsincode/cronoapp/internal/store"
	"github.com/friendsincode/cronoapp/internal/templates"
	"github.com/friendsincode/cronoapp/internal/tracker"
	"github.com/friendsincode/cronoapp/internal/version"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Deps are the services the API dispatches to.
type Deps struct {
	Store     store.Repository
	Tracker   *tracker.Service
	Calendar  *calendar.Service
	Reports   *reports.Service
	Templates *templates.Service
	Settings  *settings.Service
	Export    *export.Service
	Bus       events.Broker

	JWTSecret       []byte
	JWTTTL          time.Duration
	DefaultLocation *time.Location
	Now             func() time.Time
}

// API exposes HTTP handlers.
type API struct {
	store     store.Repository
	tracker   *tracker.Service
	calendar  *calendar.Service
	reports   *reports.Service
	templates *templates.Service
	settings  *settings.Service
	export    *export.Service
	bus       events.Broker
	jwtSecret []byte
	jwtTTL    time.Duration
	location  *time.Location
	now       func() time.Time
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(deps Deps, logger zerolog.Logger) *API {
	loc := deps.DefaultLocation
	if loc == nil {
		loc = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ttl := deps.JWTTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &API{
		store:     deps.Store,
		tracker:   deps.Tracker,
		calendar:  deps.Calendar,
		reports:   deps.Reports,
		templates: deps.Templates,
		settings:  deps.Settings,
		export:    deps.Export,
		bus:       deps.Bus,
		jwtSecret: deps.JWTSecret,
		jwtTTL:    ttl,
		location:  loc,
		now:       now,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers every endpoint under /api/v1.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Post("/auth/register", a.handleRegister)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Get("/me", a.handleMe)

			pr.Route("/areas", func(r chi.Router) {
				r.Get("/", a.handleAreasList)
				r.Post("/", a.handleAreasCreate)
				r.Patch("/{id}", a.handleAreasUpdate)
				r.Delete("/{id}", a.handleAreasDelete)
			})

			pr.Route("/activities", func(r chi.Router) {
				r.Get("/", a.handleActivitiesList)
				r.Post("/", a.handleActivitiesCreate)
				r.Patch("/{id}", a.handleActivitiesUpdate)
				r.Delete("/{id}", a.handleActivitiesDelete)
			})

			pr.Route("/entries", func(r chi.Router) {
				r.Get("/", a.handleEntriesList)
				r.Post("/", a.handleEntriesCreate)
				r.Patch("/{id}", a.handleEntriesUpdate)
				r.Delete("/{id}", a.handleEntriesDelete)
				r.Post("/{id}/move", a.handleEntriesMove)
				r.Post("/{id}/adjust", a.handleEntriesAdjust)
				r.Post("/{id}/resize", a.handleEntriesResize)
			})

			pr.Route("/timer", func(r chi.Router) {
				r.Get("/", a.handleTimerActive)
				r.Post("/start", a.handleTimerStart)
				r.Post("/stop", a.handleTimerStop)
			})

			pr.Get("/calendar/{date}", a.handleCalendarDay)
			pr.Get("/reports/{period}", a.handleReport)

			pr.Route("/settings", func(r chi.Router) {
				r.Get("/", a.handleSettingsGet)
				r.Patch("/", a.handleSettingsUpdate)
			})

			pr.Route("/templates", func(r chi.Router) {
				r.Get("/", a.handleTemplatesList)
				r.Post("/{id}/apply", a.handleTemplatesApply)
			})

			pr.Route("/export", func(r chi.Router) {
				r.Get("/", a.handleExport)
				r.Post("/archive", a.handleExportArchive)
			})

			pr.Route("/apikeys", func(r chi.Router) {
				r.Get("/", a.handleAPIKeysList)
				r.Post("/", a.handleAPIKeysCreate)
				r.Delete("/{id}", a.handleAPIKeysRevoke)
			})

			pr.Get("/events", a.handleEvents)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.Middleware(a.store, a.jwtSecret)
}

// currentUser returns the authenticated user id set by the auth middleware.
func currentUser(r *http.Request) string {
	return auth.UserIDFromContext(r.Context())
}

// location resolves the ?tz= parameter, falling back to the server default.
func (a *API) requestLocation(r *http.Request) (*time.Location, error) {
	tz := strings.TrimSpace(r.URL.Query().Get("tz"))
	if tz == "" {
		return a.location, nil
	}
	return time.LoadLocation(tz)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// errorMapping pairs a sentinel error with its HTTP status and code.
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{tracker.ErrActivityNotFound, http.StatusNotFound, "activity_not_found"},
	{tracker.ErrEntryNotFound, http.StatusNotFound, "entry_not_found"},
	{tracker.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
	{tracker.ErrNotRunning, http.StatusConflict, "not_running"},
	{calendar.ErrInvalidEdge, http.StatusBadRequest, "invalid_edge"},
	{calendar.ErrInvalidDelta, http.StatusBadRequest, "invalid_delta"},
	{calendar.ErrInvalidSize, http.StatusBadRequest, "invalid_duration"},
	{reports.ErrInvalidPeriod, http.StatusBadRequest, "invalid_period"},
	{templates.ErrTemplateNotFound, http.StatusNotFound, "template_not_found"},
	{settings.ErrInvalidLanguage, http.StatusBadRequest, "invalid_language"},
	{settings.ErrInvalidTheme, http.StatusBadRequest, "invalid_theme"},
	{export.ErrInvalidFormat, http.StatusBadRequest, "invalid_format"},
	{export.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
	{export.ErrNoStorage, http.StatusServiceUnavailable, "storage_unavailable"},
	{models.ErrEmptyUpdate, http.StatusBadRequest, "empty_update"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{store.ErrNotFound, http.StatusNotFound, "not_found"},
	{store.ErrConflict, http.StatusConflict, "conflict"},
}

// writeServiceError maps domain errors to responses and logs the rest.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code)
			return
		}
	}
	a.logger.Error().Err(err).Str("op", op).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error")
}
