package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pocket-survival/internal/auth"
	"pocket-survival/internal/backend"
	"pocket-survival/internal/budget"
	"pocket-survival/internal/handlers"
	"pocket-survival/internal/memstore"
	"pocket-survival/internal/ports"
	"pocket-survival/internal/services"
	"pocket-survival/internal/storage"
	"pocket-survival/internal/telemetry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRouter(t *testing.T) {
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create database")
	defer db.Close()

	rec := telemetry.NewRecorder()
	tracker := services.NewTracker(db, budget.NewHolder(db, decimal.NewFromInt(5000)), services.WithRecorder(rec))

	multi := handlers.NewHandlers(handlers.Deps{
		Tracker:     tracker,
		Gateway:     auth.NewGateway(db),
		Recorder:    rec,
		Ping:        db.Ping,
		TemplateDir: "../../web/templates",
	})
	single := handlers.NewHandlers(handlers.Deps{
		Tracker:     tracker,
		Recorder:    rec,
		Ping:        db.Ping,
		TemplateDir: "../../web/templates",
	})

	tests := []struct {
		name       string
		h          *handlers.Handlers
		method     string
		path       string
		wantStatus int
		wantHeader string
	}{
		{"root redirects to battle", multi, http.MethodGet, "/", http.StatusFound, "/battle"},
		{"battle requires auth", multi, http.MethodGet, "/battle", http.StatusFound, "/login"},
		{"spend requires auth", multi, http.MethodPost, "/expenses", http.StatusFound, "/login"},
		{"login page", multi, http.MethodGet, "/login", http.StatusOK, ""},
		{"static file", multi, http.MethodGet, "/static/style.css", http.StatusOK, ""},
		{"health", multi, http.MethodGet, "/healthz", http.StatusOK, ""},
		{"metrics", multi, http.MethodGet, "/metrics", http.StatusOK, ""},
		{"single-user battle is open", single, http.MethodGet, "/battle", http.StatusOK, ""},
		{"single-user has no login", single, http.MethodGet, "/login", http.StatusNotFound, ""},
		{"unknown path", single, http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupRouter(tt.h, "../../web/static", rec)
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, "%s %s returned unexpected status", tt.method, tt.path)
			if tt.wantHeader != "" {
				assert.Equal(t, tt.wantHeader, w.Header().Get("Location"))
			}
		})
	}
}

func TestMetricsCountSpends(t *testing.T) {
	store := memstore.New()
	rec := telemetry.NewRecorder()
	tracker := services.NewTracker(store, budget.NewHolder(store, decimal.NewFromInt(100)), services.WithRecorder(rec))
	h := handlers.NewHandlers(handlers.Deps{Tracker: tracker, Recorder: rec, TemplateDir: "../../web/templates"})
	mux := setupRouter(h, "../../web/static", rec)

	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader("item=Gum&amount=2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, "hp_expenses_logged_total 1")
	assert.Contains(t, body, `hp_http_request_duration_seconds_count{code="303",route="spend"} 1`)
}

type countingAccounts struct {
	ports.AccountStore
	calls atomic.Int32
}

func (c *countingAccounts) CleanExpiredSessions(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return c.AccountStore.CleanExpiredSessions(ctx)
}

func TestSweepSessions(t *testing.T) {
	store := memstore.New()
	user, err := store.CreateUser(context.Background(), "alice", "hash")
	require.NoError(t, err)
	require.NoError(t, store.CreateSession(context.Background(), "stale", user.ID, time.Now().Add(-time.Minute)))

	accounts := &countingAccounts{AccountStore: store}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweepSessions(ctx, &backend.Result{Accounts: accounts}, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return accounts.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	n, err := store.CleanExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "the sweeper already removed the stale session")
}
