package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/config"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/handlers"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/manager"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/security"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/session"
)

const statsInterval = 5 * time.Minute

func main() {
	logging.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		logging.LogCritical("Invalid configuration", err)
		os.Exit(1)
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	logging.LogInfo("Starting credit engine",
		"env", cfg.Env,
		"address", cfg.HTTPAddress,
		"timezone", cfg.Location.String(),
		"credit_goal", cfg.CreditGoal,
		"session_timeout", cfg.SessionTimeout.String())

	store := session.NewStore(cfg.SessionTimeout)
	defer store.Close()

	limiter := security.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateBurst)
	defer limiter.Close()

	// one sequence for the whole process keeps codes unique across workspaces
	seq := manager.NewSequence()
	h := handlers.NewHandler(store, cfg.Production(),
		manager.WithSequence(seq),
		manager.WithGoal(cfg.CreditGoal),
		manager.WithClock(func() time.Time { return time.Now().In(cfg.Location) }))

	r := mux.NewRouter()
	r.Use(handlers.RequestID, handlers.RequestLogger, limiter.RateLimitMiddleware)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	h.Register(r)

	var root http.Handler = r
	if cfg.Production() {
		root = csrf.Protect(cfg.CSRFKey,
			csrf.Secure(true),
			csrf.RequestHeader("X-CSRF-Token"),
			csrf.CookieName("csrf_token"),
			csrf.Path("/"))(r)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logging.LogSystemStats()
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logging.LogInfo("HTTP server listening", "address", cfg.HTTPAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogCritical("HTTP server failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	logging.LogInfo("Shutting down credit engine", "active_sessions", store.GetSessionCount())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError("HTTP server shutdown failed", err)
	}
}
