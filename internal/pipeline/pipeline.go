// Package pipeline orchestrates the dashboard: it reads the roster through
// its cache, aggregates it into boards, serves forecasts and publishes
// scheduled boards.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/couchcryptid/painel-obra/internal/domain"
	"github.com/couchcryptid/painel-obra/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrNotConfigured is returned while the roster source lacks configuration.
// The underlying configuration error is wrapped alongside it.
var ErrNotConfigured = errors.New("roster source not configured")

// RosterProvider returns the current roster snapshot, fetching when stale or
// forced.
type RosterProvider interface {
	Get(ctx context.Context, force bool) (domain.RosterSnapshot, error)
}

// ForecastProvider returns one forecast result per requested city.
type ForecastProvider interface {
	Forecasts(ctx context.Context, cities []string) map[string]domain.ForecastResult
}

// BoardPublisher ships an unfiltered board to downstream consumers.
type BoardPublisher interface {
	PublishBoard(ctx context.Context, board domain.Board) error
}

// Settings holds the presentation settings of a Service.
type Settings struct {
	DisciplinePriority []string
	Municipalities     []string

	// ConfigErr, when set, disables the roster path. Board and FilterOptions
	// return it wrapped in ErrNotConfigured.
	ConfigErr error
}

// Service is the dashboard façade used by the HTTP API, the scheduler and
// the board CLI.
type Service struct {
	roster    RosterProvider
	weather   ForecastProvider
	publisher BoardPublisher
	settings  Settings
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Service. roster may be nil when settings.ConfigErr is set;
// publisher may be nil to disable publishing.
func New(roster RosterProvider, weather ForecastProvider, publisher BoardPublisher, settings Settings, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if len(settings.DisciplinePriority) == 0 {
		settings.DisciplinePriority = domain.DefaultDisciplinePriority
	}
	if roster == nil && settings.ConfigErr == nil {
		settings.ConfigErr = errors.New("no roster source")
	}
	return &Service{
		roster:    roster,
		weather:   weather,
		publisher: publisher,
		settings:  settings,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Board aggregates the roster into site cards under filters f. force
// bypasses the roster cache.
func (s *Service) Board(ctx context.Context, f domain.Filters, force bool) (domain.Board, error) {
	snap, err := s.snapshot(ctx, force)
	if err != nil {
		return domain.Board{}, err
	}
	return domain.BuildBoard(snap, f, s.settings.DisciplinePriority, s.clock.Now()), nil
}

// FilterOptions lists the selectable filter values of the current roster.
func (s *Service) FilterOptions(ctx context.Context) (domain.FilterOptions, error) {
	snap, err := s.snapshot(ctx, false)
	if err != nil {
		return domain.FilterOptions{}, err
	}
	return domain.Options(snap.Records), nil
}

// Forecasts returns one result per distinct city. An empty selection yields
// an empty map.
func (s *Service) Forecasts(ctx context.Context, cities []string) map[string]domain.ForecastResult {
	if len(cities) == 0 {
		return map[string]domain.ForecastResult{}
	}
	return s.weather.Forecasts(ctx, cities)
}

// Municipalities returns the cities offered for weather lookups.
func (s *Service) Municipalities() []string {
	return slices.Clone(s.settings.Municipalities)
}

// Refresh is the periodic trigger: it loads the roster through the cache,
// never forcing, and publishes the unfiltered board when a publisher is set.
func (s *Service) Refresh(ctx context.Context) error {
	board, err := s.Board(ctx, domain.Filters{}, false)
	if err != nil {
		return err
	}
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishBoard(ctx, board); err != nil {
		s.metrics.PublishErrors.Inc()
		return err
	}
	s.metrics.BoardsPublished.Inc()
	return nil
}

// CheckReadiness returns nil once a roster snapshot has been loaded, or an
// error describing why the service is not yet ready.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.settings.ConfigErr != nil {
		return fmt.Errorf("%w: %w", ErrNotConfigured, s.settings.ConfigErr)
	}
	if !s.ready.Load() {
		return errors.New("roster has not been loaded yet")
	}
	return nil
}

func (s *Service) snapshot(ctx context.Context, force bool) (domain.RosterSnapshot, error) {
	if s.settings.ConfigErr != nil {
		return domain.RosterSnapshot{}, fmt.Errorf("%w: %w", ErrNotConfigured, s.settings.ConfigErr)
	}
	snap, err := s.roster.Get(ctx, force)
	if err != nil {
		return domain.RosterSnapshot{}, err
	}
	s.ready.Store(true)
	s.metrics.RosterAge.Set(snap.Age(s.clock.Now()).Seconds())
	return snap, nil
}
