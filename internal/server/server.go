/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/cronoapp/internal/api"
	"github.com/friendsincode/cronoapp/internal/cache"
	"github.com/friendsincode/cronoapp/internal/calendar"
	"github.com/friendsincode/cronoapp/internal/config"
	"github.com/friendsincode/cronoapp/internal/db"
	"github.com/friendsincode/cronoapp/internal/eventbus"
	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/export"
	"github.com/friendsincode/cronoapp/internal/leadership"
	"github.com/friendsincode/cronoapp/internal/reminder"
	"github.com/friendsincode/cronoapp/internal/reports"
	"github.com/friendsincode/cronoapp/internal/settings"
	"github.com/friendsincode/cronoapp/internal/storage"
	"github.com/friendsincode/cronoapp/internal/store"
	"github.com/friendsincode/cronoapp/internal/telemetry"
	"github.com/friendsincode/cronoapp/internal/templates"
	"github.com/friendsincode/cronoapp/internal/tracker"
	"github.com/friendsincode/cronoapp/internal/version"
)

const serviceName = "cronoapp-api"

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db       *gorm.DB
	store    store.Repository
	cache    *cache.Cache
	bus      events.Broker
	api      *api.API
	tracer   *telemetry.TracerProvider
	reminder *reminder.Service

	election    *leadership.Election
	leaderAware *leadership.LeaderAware

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New builds the server, connects its dependencies and starts background workers.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware(serviceName))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(timeoutUnlessUpgrade(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler: srv.router,
		// Header deadline only; websocket streams manage their own deadlines.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

// timeoutUnlessUpgrade applies a request timeout to everything except websocket upgrades.
func timeoutUnlessUpgrade(d time.Duration) func(http.Handler) http.Handler {
	timeout := middleware.Timeout(d)
	return func(next http.Handler) http.Handler {
		limited := timeout(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tp, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		OTLPEndpoint:   s.cfg.OTLPEndpoint,
		Enabled:        s.cfg.TracingEnabled,
		SampleRate:     s.cfg.TracingSampleRate,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	s.tracer = tp
	s.DeferClose(func() error {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		return tp.Shutdown(sctx)
	})

	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	s.db = database
	s.store = store.NewGormStore(database)

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		s.cache = cache.New(cacheCfg, s.logger)
		s.DeferClose(s.cache.Close)
	}

	bus, err := s.newBus()
	if err != nil {
		return err
	}
	s.bus = bus

	objects, err := storage.New(ctx, s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}

	catalog, err := templates.Builtin()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	var (
		trackerOpts []tracker.Option
		reportCache reports.Cache
	)
	if s.cache != nil {
		trackerOpts = append(trackerOpts, tracker.WithCache(s.cache))
		reportCache = s.cache
	}

	tr := tracker.NewService(s.store, s.bus, s.logger, trackerOpts...)
	s.api = api.New(api.Deps{
		Store:           s.store,
		Tracker:         tr,
		Calendar:        calendar.NewService(s.store, tr, s.logger),
		Reports:         reports.NewService(s.store, reportCache, s.logger),
		Templates:       templates.NewService(catalog, s.store, s.bus, s.logger),
		Settings:        settings.NewService(s.store, s.bus, s.logger),
		Export:          export.NewService(s.store, objects, s.logger),
		Bus:             s.bus,
		JWTSecret:       []byte(s.cfg.JWTSigningKey),
		JWTTTL:          s.cfg.JWTTTL,
		DefaultLocation: s.cfg.Location(),
		Now:             time.Now,
	}, s.logger)

	if s.cfg.ReminderEnabled {
		s.reminder = reminder.NewService(s.store, s.bus, s.cfg.ReminderThreshold, s.cfg.ReminderInterval, s.logger)
	}

	if s.cfg.LeaderElectionEnabled {
		electionCfg := leadership.DefaultConfig()
		electionCfg.RedisAddr = s.cfg.RedisAddr
		electionCfg.RedisPassword = s.cfg.RedisPassword
		electionCfg.RedisDB = s.cfg.RedisDB
		electionCfg.InstanceID = s.cfg.InstanceID

		election, err := leadership.NewElection(electionCfg, s.logger)
		if err != nil {
			return fmt.Errorf("create leader election: %w", err)
		}
		s.election = election
		s.DeferClose(election.Stop)

		if s.reminder != nil {
			s.leaderAware = leadership.NewLeaderAware(s.reminder, election, "reminder", s.logger)
		}

		s.logger.Info().
			Str("instance_id", electionCfg.InstanceID).
			Str("redis_addr", s.cfg.RedisAddr).
			Msg("leader election enabled")
	}

	return nil
}

func (s *Server) newBus() (events.Broker, error) {
	nodeID := eventbus.NodeID(s.cfg.InstanceID)

	switch s.cfg.EventBus {
	case config.EventBusRedis:
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		bus := eventbus.NewRedisBus(redisCfg, nodeID, s.logger)
		s.DeferClose(bus.Close)
		return bus, nil

	case config.EventBusNATS:
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		bus, err := eventbus.NewNATSBus(natsCfg, nodeID, s.logger)
		if err != nil {
			return nil, fmt.Errorf("connect nats event bus: %w", err)
		}
		s.DeferClose(bus.Close)
		return bus, nil
	}

	return events.NewBus(), nil
}

// HTTPServer exposes the configured http.Server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Router exposes the HTTP handler, mostly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown stops accepting requests, waits for in-flight ones, then closes resources.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = s.httpServer.Shutdown(ctx)
	}
	if err := s.Close(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	return shutdownErr
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Leader  *bool  `json:"leader,omitempty"`
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Version: version.Version}
		if s.election != nil {
			leader := s.election.IsLeader()
			resp.Leader = &leader
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
