package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/painel-obra/internal/domain"
	"github.com/couchcryptid/painel-obra/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// GeoConfig tunes a GeoCache.
type GeoConfig struct {
	Country    string        // appended to every geocoding query
	Timeout    time.Duration // per external call
	Pacing     time.Duration // minimum gap between consecutive external calls
	MaxEntries int           // LRU bound; <= 0 means unbounded
}

// GeoCache memoizes municipality/state → latitude lookups. Both matches and
// misses are stored, so a key reaches the geocoder at most once while it
// stays in the cache.
type GeoCache struct {
	geocoder domain.Geocoder
	cfg      GeoConfig
	clock    clockwork.Clock
	entries  *lru[geoEntry]
	group    singleflight.Group
	metrics  *observability.Metrics
	logger   *slog.Logger

	paceMu   sync.Mutex
	lastCall time.Time
}

type geoEntry struct {
	lat   float64
	found bool
}

// NewGeoCache creates a cache in front of geocoder.
func NewGeoCache(geocoder domain.Geocoder, cfg GeoConfig, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *GeoCache {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallTimeout
	}
	return &GeoCache{
		geocoder: geocoder,
		cfg:      cfg,
		clock:    clock,
		entries:  newLRU[geoEntry](cfg.MaxEntries),
		metrics:  metrics,
		logger:   logger,
	}
}

// Resolve returns the latitude of municipality/state, or false when the
// geocoder had no match or failed. It never returns an error. The geocoder
// call is shared by concurrent callers and runs detached from ctx, bounded by
// the call timeout, so a caller that gives up does not affect the others.
func (c *GeoCache) Resolve(ctx context.Context, municipality, state string) (float64, bool) {
	key := domain.LocationKey(municipality, state)
	if e, ok := c.entries.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("geo", "hit").Inc()
		return e.lat, e.found
	}
	if ctx.Err() != nil {
		return 0, false
	}
	c.metrics.CacheLookups.WithLabelValues("geo", "miss").Inc()

	ch := c.group.DoChan(key, func() (any, error) {
		if e, ok := c.entries.get(key); ok {
			return e, nil
		}
		e := c.lookup(context.WithoutCancel(ctx), municipality, state)
		c.entries.put(key, e)
		return e, nil
	})
	select {
	case <-ctx.Done():
		return 0, false
	case res := <-ch:
		e := res.Val.(geoEntry)
		return e.lat, e.found
	}
}

// ResolveAll attaches a latitude to every record that has municipality and
// state but no latitude yet. Records are copied; the input is not modified.
func (c *GeoCache) ResolveAll(ctx context.Context, records []domain.WorkerRecord) []domain.WorkerRecord {
	out := make([]domain.WorkerRecord, len(records))
	for i, rec := range records {
		if rec.Latitude == nil && rec.HasLocation() {
			if lat, ok := c.Resolve(ctx, rec.Municipality, rec.State); ok {
				rec = rec.WithLatitude(lat)
			}
		}
		out[i] = rec
	}
	return out
}

// Len returns the number of cached keys.
func (c *GeoCache) Len() int {
	return c.entries.len()
}

// lookup calls the geocoder. Failures and timeouts yield an unresolved entry.
func (c *GeoCache) lookup(ctx context.Context, municipality, state string) geoEntry {
	c.paceMu.Lock()
	defer c.paceMu.Unlock()

	c.pace(ctx)

	query := domain.GeocodeQuery(municipality, state, c.cfg.Country)
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := c.clock.Now()
	result, err := c.geocoder.ForwardGeocode(callCtx, query)
	c.lastCall = c.clock.Now()
	c.metrics.GeocodeAPIDuration.Observe(c.lastCall.Sub(start).Seconds())

	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		c.logger.Warn("geocoding failed", "query", query, "error", err)
		return geoEntry{}
	}
	if !result.Found() {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("geocoding returned no match", "query", query)
		return geoEntry{}
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return geoEntry{lat: result.Lat, found: true}
}

// pace waits until Pacing has elapsed since the previous external call.
func (c *GeoCache) pace(ctx context.Context) {
	if c.cfg.Pacing <= 0 || c.lastCall.IsZero() {
		return
	}
	wait := c.cfg.Pacing - c.clock.Since(c.lastCall)
	if wait <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-c.clock.After(wait):
	}
}
