package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pocket-survival/internal/amqp"
	"pocket-survival/internal/auth"
	"pocket-survival/internal/backend"
	"pocket-survival/internal/budget"
	"pocket-survival/internal/config"
	"pocket-survival/internal/handlers"
	"pocket-survival/internal/log"
	"pocket-survival/internal/services"
	"pocket-survival/internal/telemetry"

	"golang.org/x/sync/errgroup"
)

const sessionSweepInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ceiling, err := cfg.Ceiling()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Setup(log.Config{Level: level, Output: os.Stderr, JSON: os.Getenv("LOG_FORMAT") == "json"})
	logger := log.Component(log.ComponentApp)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Err(ctx, "failed to close backend", "close", err)
		}
	}()

	rec := telemetry.NewRecorder()

	opts := []services.Option{services.WithRecorder(rec), services.WithLocation(loc)}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			// Events are optional; the ledger keeps working without a broker.
			logger.Warn("AMQP unavailable, events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			opts = append(opts, services.WithPublisher(client))
			logger.Info("publishing ledger events", "exchange", cfg.AMQPExchange)
		}
	}
	tracker := services.NewTracker(res.Expenses, budget.NewHolder(res.Profiles, ceiling), opts...)

	var gateway *auth.Gateway
	if cfg.MultiUser {
		gateway = auth.NewGateway(res.Accounts)
		created, err := gateway.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		if created {
			logger.Info("created admin user", "username", cfg.AdminUser)
		}
	}

	h := handlers.NewHandlers(handlers.Deps{
		Tracker:      tracker,
		Gateway:      gateway,
		Recorder:     rec,
		Ping:         res.Ping,
		TemplateDir:  cfg.TemplateDir,
		SecureCookie: cfg.SecureCookie,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           log.Middleware(log.Component(log.ComponentHTTP))(setupRouter(h, cfg.StaticDir, rec)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr, "backend", res.Name, "multi_user", cfg.MultiUser)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if gateway != nil {
		g.Go(func() error {
			sweepSessions(gctx, res, sessionSweepInterval)
			return nil
		})
	}
	return g.Wait()
}

// sweepSessions deletes expired sessions until ctx is done.
func sweepSessions(ctx context.Context, res *backend.Result, every time.Duration) {
	logger := log.Component(log.ComponentAuth)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := res.Accounts.CleanExpiredSessions(ctx)
			if err != nil {
				logger.Err(ctx, "session sweep failed", "clean_sessions", err)
				continue
			}
			if n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

func setupRouter(h *handlers.Handlers, staticDir string, rec *telemetry.Recorder) *http.ServeMux {
	mux := http.NewServeMux()

	protected := func(route string, fn http.HandlerFunc) http.Handler {
		return rec.Instrument(route, h.Protect(fn))
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/battle", http.StatusFound)
	})

	if h.MultiUser() {
		mux.HandleFunc("GET /login", h.LoginForm)
		mux.Handle("POST /login", rec.Instrument("login", http.HandlerFunc(h.Login)))
		mux.HandleFunc("GET /register", h.RegisterForm)
		mux.Handle("POST /register", rec.Instrument("register", http.HandlerFunc(h.Register)))
		mux.HandleFunc("POST /logout", h.Logout)
	}

	mux.Handle("GET /battle", protected("battle", h.Battle))
	mux.Handle("POST /expenses", protected("spend", h.Spend))
	mux.Handle("POST /reset", protected("reset", h.Reset))
	mux.Handle("POST /budget", protected("budget", h.Budget))
	mux.Handle("GET /logs", protected("logs", h.Logs))
	mux.Handle("GET /export", protected("export", h.Export))

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.Handle("GET /metrics", rec.Handler())
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	return mux
}
