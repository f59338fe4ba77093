// Command devserver runs an in-memory stand-in of the remote resume service
// for local development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/resumeforge/tailor-client/internal/devserver"
	"github.com/resumeforge/tailor-client/internal/pkg/config"
	"github.com/resumeforge/tailor-client/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "devserver"})

	srv := devserver.New(devserver.Config{
		JWTSecret: cfg.DevServer.JWTSecret,
		TokenTTL:  cfg.DevServer.TokenTTL,
	}, log)

	go func() {
		if err := srv.Start(":" + cfg.DevServer.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("listen failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down dev server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Echo().Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("dev server forced to shut down")
	}
}
