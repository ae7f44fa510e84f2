// Command dashboard serves the site roster dashboard API and refreshes the
// roster on a schedule.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/painel-obra/internal/adapter/googlemaps"
	httpadapter "github.com/couchcryptid/painel-obra/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/painel-obra/internal/adapter/kafka"
	"github.com/couchcryptid/painel-obra/internal/adapter/mapbox"
	"github.com/couchcryptid/painel-obra/internal/adapter/openweather"
	"github.com/couchcryptid/painel-obra/internal/adapter/sheets"
	"github.com/couchcryptid/painel-obra/internal/cache"
	"github.com/couchcryptid/painel-obra/internal/config"
	"github.com/couchcryptid/painel-obra/internal/domain"
	"github.com/couchcryptid/painel-obra/internal/observability"
	"github.com/couchcryptid/painel-obra/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Geocoding is optional; without it sites keep their sheet order.
	var geo cache.LatitudeResolver
	geocoder, err := newGeocoder(cfg, logger)
	if err != nil {
		logger.Error("failed to create geocoder", "error", err)
		os.Exit(1)
	}
	if geocoder != nil {
		geo = cache.NewGeoCache(geocoder, cache.GeoConfig{
			Country:    cfg.GeoCountry,
			Timeout:    cfg.GeocoderTimeout,
			Pacing:     cfg.GeocoderPacing,
			MaxEntries: cfg.GeoCacheSize,
		}, clock, metrics, logger)
		logger.Info("geocoding enabled", "provider", cfg.GeocoderProvider, "cache_size", cfg.GeoCacheSize, "pacing", cfg.GeocoderPacing)
	} else {
		logger.Info("geocoding disabled")
	}

	settings := pipeline.Settings{
		DisciplinePriority: cfg.DisciplinePriority,
		Municipalities:     cfg.Municipalities,
		ConfigErr:          cfg.RosterErr(),
	}

	var roster pipeline.RosterProvider
	if settings.ConfigErr == nil {
		source, err := sheets.NewClient(ctx, cfg.GoogleCredentials, logger)
		if err != nil {
			settings.ConfigErr = err
		} else {
			roster = cache.NewRosterCache(source, geo, cache.RosterConfig{
				StoreID:   cfg.SheetID,
				SheetName: cfg.SheetName,
				TTL:       cfg.RosterTTL,
				Timeout:   cfg.RosterTimeout,
			}, clock, metrics, logger)
		}
	}
	if settings.ConfigErr != nil {
		logger.Warn("roster source not configured, serving degraded", "error", settings.ConfigErr)
	}

	weather := cache.NewWeatherCache(
		openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.WeatherTimeout, logger),
		cache.WeatherConfig{TTL: cfg.WeatherTTL, Timeout: cfg.WeatherTimeout, MaxEntries: cfg.WeatherCacheSize},
		clock, metrics, logger,
	)

	var publisher pipeline.BoardPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.PublishEnabled() {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("board publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaBoardTopic)
	}

	svc := pipeline.New(roster, weather, publisher, settings, clock, logger, metrics)

	sched, err := pipeline.NewScheduler(cfg.RefreshSchedule, svc, cfg.RosterTTL, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Warm the roster cache, then hand over to the schedule.
	if settings.ConfigErr == nil {
		go func() {
			if err := svc.Refresh(ctx); err != nil {
				logger.Error("initial refresh failed", "error", err)
			}
		}()
	}
	sched.Start(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newGeocoder returns the configured provider, or nil when geocoding is off.
func newGeocoder(cfg *config.Config, logger *slog.Logger) (domain.Geocoder, error) {
	switch cfg.GeocoderProvider {
	case config.ProviderMapbox:
		return mapbox.NewClient(cfg.MapboxToken, "br", cfg.GeocoderTimeout, logger), nil
	case config.ProviderGoogle:
		return googlemaps.NewClient(cfg.GoogleMapsAPIKey, "br", cfg.GeocoderTimeout, logger)
	default:
		return nil, nil
	}
}
