package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	router "github.com/Shivyyyy-git/volley-peer-app/internal/adapters/http"
	"github.com/Shivyyyy-git/volley-peer-app/internal/app"
	"github.com/Shivyyyy-git/volley-peer-app/internal/config"
	"github.com/Shivyyyy-git/volley-peer-app/internal/telemetry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	telemetry.InitLogger(cfg.LogFile)

	// The relay runs without metrics rather than refusing to start.
	var metrics *telemetry.RelayMetrics
	meter, flushMetrics, err := telemetry.InitMetrics(ctx, cfg.MetricFile)
	if err != nil {
		log.Error().Err(err).Msg("failed to init metrics")
	} else {
		defer flushMetrics()
		if metrics, err = telemetry.NewRelayMetrics(meter); err != nil {
			log.Error().Err(err).Msg("failed to build relay metrics")
		}
	}
	relay := app.NewRelay(metrics)

	r := router.SetupRouter(ctx, cfg, relay)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Volley relay started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
