// Package cache holds the process-wide caches in front of the dashboard's
// external collaborators: the roster source, the geocoder and the weather
// source. Each cache is an explicit object owned by the service and injected
// where needed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/painel-obra/internal/domain"
	"github.com/couchcryptid/painel-obra/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultRosterTTL is how long a roster snapshot is served without refetching.
	DefaultRosterTTL = 5 * time.Minute

	// DefaultCallTimeout bounds every external call.
	DefaultCallTimeout = 10 * time.Second

	// maxFetchAttempts allows one retry after re-authorization.
	maxFetchAttempts = 2
)

// ErrRosterUnavailable is returned when the roster could not be fetched. The
// cause is wrapped alongside it.
var ErrRosterUnavailable = errors.New("roster unavailable")

// LatitudeResolver attaches latitudes to roster records.
type LatitudeResolver interface {
	ResolveAll(ctx context.Context, records []domain.WorkerRecord) []domain.WorkerRecord
}

// RosterConfig tunes a RosterCache.
type RosterConfig struct {
	StoreID   string
	SheetName string
	TTL       time.Duration
	Timeout   time.Duration // per fetch attempt
}

// RosterCache holds the latest roster snapshot and refetches it when it is
// TTL old or a refresh is forced. All access is serialized, so concurrent
// refreshes result in a single fetch.
type RosterCache struct {
	source  domain.RosterSource
	geo     LatitudeResolver
	cfg     RosterConfig
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	snapshot *domain.RosterSnapshot
}

// NewRosterCache creates a roster cache. geo may be nil to skip latitude
// enrichment.
func NewRosterCache(source domain.RosterSource, geo LatitudeResolver, cfg RosterConfig, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *RosterCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultRosterTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallTimeout
	}
	return &RosterCache{
		source:  source,
		geo:     geo,
		cfg:     cfg,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Get returns the cached snapshot when it is younger than the TTL and force
// is false. Otherwise it fetches a new one, aged from the moment the fetch
// succeeded. A failed fetch, or a ctx that ends during latitude enrichment,
// returns ErrRosterUnavailable and leaves the previous snapshot in place.
func (c *RosterCache) Get(ctx context.Context, force bool) (domain.RosterSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.snapshot != nil && c.snapshot.Age(c.clock.Now()) < c.cfg.TTL {
		c.metrics.CacheLookups.WithLabelValues("roster", "hit").Inc()
		return *c.snapshot, nil
	}
	c.metrics.CacheLookups.WithLabelValues("roster", "miss").Inc()

	rows, err := c.fetch(ctx)
	if err != nil {
		c.logger.Error("roster fetch failed", "store_id", c.cfg.StoreID, "sheet", c.cfg.SheetName, "force", force, "error", err)
		return domain.RosterSnapshot{}, fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
	}
	fetchedAt := c.clock.Now()

	records := domain.ParseRoster(rows)
	if c.geo != nil {
		records = c.geo.ResolveAll(ctx, records)
		// A caller that left during enrichment leaves latitudes missing;
		// such a roster must not become the cached snapshot.
		if err := ctx.Err(); err != nil {
			c.logger.Warn("roster enrichment interrupted", "force", force, "error", err)
			return domain.RosterSnapshot{}, fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
		}
	}

	snap := domain.RosterSnapshot{
		ID:        uuid.NewString(),
		Records:   records,
		FetchedAt: fetchedAt,
	}
	c.snapshot = &snap
	c.metrics.RosterRows.Set(float64(len(records)))
	c.logger.Info("roster refreshed", "snapshot_id", snap.ID, "rows", len(rows), "records", len(records), "force", force)
	return snap, nil
}

// Snapshot returns the current snapshot without fetching, regardless of age.
func (c *RosterCache) Snapshot() (domain.RosterSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil {
		return domain.RosterSnapshot{}, false
	}
	return *c.snapshot, true
}

// fetch reads the roster, re-authorizing and retrying once when the source
// rejects the credentials.
func (c *RosterCache) fetch(ctx context.Context) ([]domain.RawRecord, error) {
	var err error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		var rows []domain.RawRecord
		rows, err = c.fetchOnce(ctx)
		if err == nil {
			c.metrics.RosterFetches.WithLabelValues("success").Inc()
			return rows, nil
		}
		if !errors.Is(err, domain.ErrUnauthorized) {
			c.metrics.RosterFetches.WithLabelValues("error").Inc()
			return nil, err
		}
		c.metrics.RosterFetches.WithLabelValues("unauthorized").Inc()
		if attempt == maxFetchAttempts {
			break
		}

		c.metrics.RosterReauths.Inc()
		c.logger.Warn("roster source rejected credentials, re-authorizing", "attempt", attempt, "error", err)
		if rerr := c.source.Reauthorize(ctx); rerr != nil {
			return nil, fmt.Errorf("reauthorize roster source: %w", rerr)
		}
	}
	return nil, err
}

func (c *RosterCache) fetchOnce(ctx context.Context) ([]domain.RawRecord, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.source.FetchRecords(callCtx, c.cfg.StoreID, c.cfg.SheetName)
}
