// Command resumeforge runs the resume tailoring client core behind a local
// HTTP bridge that a render layer drives.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/resumeforge/tailor-client/internal/api"
	"github.com/resumeforge/tailor-client/internal/api/handler"
	"github.com/resumeforge/tailor-client/internal/core/ports"
	"github.com/resumeforge/tailor-client/internal/core/service"
	"github.com/resumeforge/tailor-client/internal/infrastructure/apiclient"
	"github.com/resumeforge/tailor-client/internal/infrastructure/queue"
	"github.com/resumeforge/tailor-client/internal/infrastructure/storage"
	"github.com/resumeforge/tailor-client/internal/pkg/config"
	"github.com/resumeforge/tailor-client/pkg/logger"
)

func main() {
	// 1. Config and logger
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "resumeforge"})
	log.Info().Str("env", cfg.Env).Str("api", cfg.API.BaseURL).Str("storage", cfg.Storage.Backend).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Durable storage for the session
	kv, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Error().Err(err).Msg("failed to open storage")
		os.Exit(1)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Warn().Err(err).Msg("closing storage")
		}
	}()

	// 3. Remote service client. The session store supplies its credential,
	// and is itself built on the client, so the credential is late-bound.
	var session *service.SessionStore
	client := apiclient.New(apiclient.Config{
		BaseURL:         cfg.API.BaseURL,
		RequestTimeout:  cfg.API.RequestTimeout,
		TailorTimeout:   cfg.API.TailorTimeout,
		GenerateTimeout: cfg.API.GenerateTimeout,
		ParseTimeout:    cfg.API.ParseTimeout,
	}, ports.CredentialFunc(func() (string, bool) {
		return session.Credential()
	}), log)
	session = service.NewSessionStore(client, kv, log)

	// 4. Background history saves
	workerCtx, stopWorker := context.WithCancel(context.Background())
	recorder := queue.NewDispatcher(client, cfg.API.RequestTimeout, log)
	recorder.Start(workerCtx)

	// 5. Orchestrators
	app := service.NewApp(client, session, service.NewArtifactRegistry(), recorder, log)
	if err := app.Start(ctx); err != nil {
		// Unreadable storage leaves the client signed out, not dead.
		log.Warn().Err(err).Msg("session not restored")
	}

	// 6. Bridge
	hub := handler.NewEventHub(cfg.BridgeOrigins, log)
	detach := hub.Attach(app)
	router := api.NewRouter(api.Deps{
		App:    app,
		Events: hub,
		Probes: map[string]handler.Pinger{"storage": kv, "remote": client},
		Log:    log,
	})

	srv := &http.Server{
		Addr:              "127.0.0.1:" + cfg.BridgePort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("bridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("listen failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("bridge forced to shut down")
	}
	detach()
	app.Close()

	if err := recorder.Drain(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("pending history saves dropped")
	}
	stopWorker()
	<-recorder.Done()

	log.Info().Msg("exited")
}
