package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Environment:       "test",
		HTTPBind:          "127.0.0.1",
		HTTPPort:          0,
		DBBackend:         config.DatabaseSQLite,
		DBDSN:             filepath.Join(dir, "cronoapp.db"),
		JWTSigningKey:     "test-signing-key-test-signing-key",
		JWTTTL:            time.Hour,
		DefaultTZ:         "UTC",
		ExportRoot:        filepath.Join(dir, "exports"),
		EventBus:          config.EventBusMemory,
		ReminderEnabled:   true,
		ReminderThreshold: 2 * time.Hour,
		ReminderInterval:  time.Minute,
	}
}

func TestServer_HealthAndRegister(t *testing.T) {
	srv, err := New(testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	var health healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&health); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("status=%q, want ok", health.Status)
	}
	if health.Leader != nil {
		t.Fatalf("leader flag should be absent without election")
	}

	body := strings.NewReader(`{"email":"ada@example.com","password":"correct horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", body)
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("security headers missing on api route")
	}

	rr = httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
}

func TestServer_ShutdownIsIdempotent(t *testing.T) {
	srv, err := New(testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestServer_UnknownDatabaseFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBBackend = "oracle"
	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestTimeoutUnlessUpgrade_SkipsWebsocket(t *testing.T) {
	var sawDeadline bool
	h := timeoutUnlessUpgrade(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawDeadline = r.Context().Deadline()
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Upgrade", "websocket")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if sawDeadline {
		t.Fatalf("websocket upgrade should not get a deadline")
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if !sawDeadline {
		t.Fatalf("plain request should get a deadline")
	}
}
