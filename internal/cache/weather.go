package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/painel-obra/internal/domain"
	"github.com/couchcryptid/painel-obra/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// DefaultWeatherTTL is how long a forecast is served from cache.
const DefaultWeatherTTL = 30 * time.Minute

// WeatherConfig tunes a WeatherCache.
type WeatherConfig struct {
	TTL        time.Duration
	Timeout    time.Duration // per external call
	MaxEntries int           // LRU bound; <= 0 means unbounded
}

// WeatherCache serves per-city forecasts, refreshing a city once its entry is
// TTL old. Failed lookups are reported per city and never cached.
type WeatherCache struct {
	source  domain.WeatherSource
	cfg     WeatherConfig
	clock   clockwork.Clock
	entries *lru[forecastEntry]
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *slog.Logger
}

type forecastEntry struct {
	forecast  domain.Forecast
	fetchedAt time.Time
}

// NewWeatherCache creates a cache in front of source.
func NewWeatherCache(source domain.WeatherSource, cfg WeatherConfig, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *WeatherCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultWeatherTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallTimeout
	}
	return &WeatherCache{
		source:  source,
		cfg:     cfg,
		clock:   clock,
		entries: newLRU[forecastEntry](cfg.MaxEntries),
		metrics: metrics,
		logger:  logger,
	}
}

// Forecasts returns one result per distinct, non-blank city: a cached
// forecast younger than the TTL, a freshly fetched one, or an error message.
// A failing city does not affect the others.
func (c *WeatherCache) Forecasts(ctx context.Context, cities []string) map[string]domain.ForecastResult {
	out := make(map[string]domain.ForecastResult, len(cities))
	for _, city := range cities {
		city = strings.TrimSpace(city)
		if city == "" {
			continue
		}
		if _, done := out[city]; done {
			continue
		}
		out[city] = c.forecast(ctx, city)
	}
	return out
}

func (c *WeatherCache) forecast(ctx context.Context, city string) domain.ForecastResult {
	if e, ok := c.fresh(city); ok {
		c.metrics.CacheLookups.WithLabelValues("weather", "hit").Inc()
		return cachedResult(city, e)
	}
	c.metrics.CacheLookups.WithLabelValues("weather", "miss").Inc()

	// The shared fetch outlives any single caller; each caller stops
	// waiting when its own ctx ends.
	ch := c.group.DoChan(city, func() (any, error) {
		if e, ok := c.fresh(city); ok {
			return cachedResult(city, e), nil
		}
		return c.fetch(context.WithoutCancel(ctx), city), nil
	})
	select {
	case <-ctx.Done():
		return domain.ForecastError(city, ctx.Err())
	case res := <-ch:
		return res.Val.(domain.ForecastResult)
	}
}

func (c *WeatherCache) fresh(city string) (forecastEntry, bool) {
	e, ok := c.entries.get(city)
	if !ok {
		return forecastEntry{}, false
	}
	return e, c.clock.Since(e.fetchedAt) < c.cfg.TTL
}

func (c *WeatherCache) fetch(ctx context.Context, city string) domain.ForecastResult {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := c.clock.Now()
	reading, err := c.source.CurrentWeather(callCtx, city)
	c.metrics.WeatherAPIDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		c.logger.Warn("weather lookup failed", "city", city, "error", err)
		return domain.ForecastError(city, err)
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()

	e := forecastEntry{forecast: domain.NewForecast(reading), fetchedAt: c.clock.Now()}
	c.entries.put(city, e)
	return cachedResult(city, e)
}

func cachedResult(city string, e forecastEntry) domain.ForecastResult {
	f := e.forecast
	return domain.ForecastResult{City: city, Forecast: &f, FetchedAt: e.fetchedAt}
}
