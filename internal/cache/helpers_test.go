package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/painel-obra/internal/domain"
	"github.com/couchcryptid/painel-obra/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

// --- geocoder fake ---

type fakeGeocoder struct {
	mu      sync.Mutex
	results map[string]domain.GeocodingResult
	err     error
	block   bool // wait for ctx cancellation
	queries []string
}

func (g *fakeGeocoder) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	g.mu.Lock()
	g.queries = append(g.queries, query)
	result, err, block := g.results[query], g.err, g.block
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.GeocodingResult{}, ctx.Err()
	}
	return result, err
}

func (g *fakeGeocoder) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queries)
}

// gateGeocoder signals on started when a call begins and answers once
// release is closed.
type gateGeocoder struct {
	started chan struct{}
	release chan struct{}
	result  domain.GeocodingResult
	n       atomic.Int32
}

func newGateGeocoder(result domain.GeocodingResult) *gateGeocoder {
	return &gateGeocoder{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
		result:  result,
	}
}

func (g *gateGeocoder) ForwardGeocode(ctx context.Context, _ string) (domain.GeocodingResult, error) {
	g.n.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
		return g.result, nil
	case <-ctx.Done():
		return domain.GeocodingResult{}, ctx.Err()
	}
}

// --- weather fake ---

type fakeWeather struct {
	mu       sync.Mutex
	readings map[string]domain.WeatherReading
	errs     map[string]error
	calls    map[string]int
}

func newFakeWeather() *fakeWeather {
	return &fakeWeather{
		readings: make(map[string]domain.WeatherReading),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (w *fakeWeather) CurrentWeather(_ context.Context, city string) (domain.WeatherReading, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[city]++
	if err := w.errs[city]; err != nil {
		return domain.WeatherReading{}, err
	}
	return w.readings[city], nil
}

func (w *fakeWeather) callsFor(city string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[city]
}

type gateWeather struct {
	started chan struct{}
	release chan struct{}
	reading domain.WeatherReading
	n       atomic.Int32
}

func newGateWeather(reading domain.WeatherReading) *gateWeather {
	return &gateWeather{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
		reading: reading,
	}
}

func (w *gateWeather) CurrentWeather(ctx context.Context, _ string) (domain.WeatherReading, error) {
	w.n.Add(1)
	w.started <- struct{}{}
	select {
	case <-w.release:
		return w.reading, nil
	case <-ctx.Done():
		return domain.WeatherReading{}, ctx.Err()
	}
}

// --- roster source fake ---

type fetchResult struct {
	rows []domain.RawRecord
	err  error
}

type fakeRosterSource struct {
	mu         sync.Mutex
	results    []fetchResult // consumed in order; the last one repeats
	fetches    int
	reauths    int
	reauthErr  error
	lastStore  string
	lastSheet  string
	hadTimeout bool
	onFetch    func() // runs inside FetchRecords
}

func (s *fakeRosterSource) FetchRecords(ctx context.Context, storeID, sheetName string) ([]domain.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, s.hadTimeout = ctx.Deadline()
	s.lastStore, s.lastSheet = storeID, sheetName
	if s.onFetch != nil {
		s.onFetch()
	}
	i := s.fetches
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.fetches++
	return s.results[i].rows, s.results[i].err
}

func (s *fakeRosterSource) Reauthorize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reauths++
	return s.reauthErr
}

func (s *fakeRosterSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}
