package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/solar-flux-service/internal/adapter/geocode"
	httpadapter "github.com/couchcryptid/solar-flux-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/solar-flux-service/internal/adapter/kafka"
	"github.com/couchcryptid/solar-flux-service/internal/adapter/solarapi"
	"github.com/couchcryptid/solar-flux-service/internal/config"
	"github.com/couchcryptid/solar-flux-service/internal/domain"
	"github.com/couchcryptid/solar-flux-service/internal/flux"
	"github.com/couchcryptid/solar-flux-service/internal/lead"
	"github.com/couchcryptid/solar-flux-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	solar := solarapi.NewClient(cfg.SolarAPIKey, cfg.SolarBaseURL, cfg.SolarTimeout, metrics, logger)
	if cfg.SolarAPIKey == "" {
		logger.Warn("SOLAR_API_KEY not set, raster and insights requests will fail")
	}

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := geocode.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = geocode.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	writer := kafkaadapter.NewWriter(cfg, logger)
	leads := lead.NewService(geocoder, solar, writer, metrics, logger)
	renderer := flux.NewRenderer(solar, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, solar, renderer, leads, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
