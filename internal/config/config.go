package config

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/painel-obra/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

// Roster configuration problems. The service starts without a usable roster
// source and reports them through readiness and the board endpoint.
var (
	ErrCredentialsMissing = errors.New("GOOGLE_CREDENTIALS is not set")
	ErrCredentialsInvalid = errors.New("GOOGLE_CREDENTIALS is neither JSON nor base64-encoded JSON")
	ErrSheetIDMissing     = errors.New("SHEET_ID is not set")
)

// Geocoder providers.
const (
	ProviderMapbox = "mapbox"
	ProviderGoogle = "google"
	ProviderNone   = "none"
)

// DefaultMunicipalities is the city list offered for weather lookups.
var DefaultMunicipalities = []string{
	"Utinga", "Bom Jesus da Serra", "Poções", "Iramaia", "Ibiquera",
	"Wagner", "Bonito", "Morro do Chapéu", "Pombas", "Planalto", "João Neiva",
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string `validate:"required"`
	LogLevel        string
	LogFormat       string `validate:"oneof=json text"`
	ShutdownTimeout time.Duration

	// Roster source (Google Sheets).
	SheetID           string
	SheetName         string `validate:"required"`
	GoogleCredentials []byte
	RosterTTL         time.Duration `validate:"gt=0"`
	RosterTimeout     time.Duration `validate:"gt=0"`
	RefreshSchedule   string        `validate:"required"`

	// Geocoding.
	GeocoderProvider string        `validate:"oneof=mapbox google none"`
	MapboxToken      string        `validate:"required_if=GeocoderProvider mapbox"`
	GoogleMapsAPIKey string        `validate:"required_if=GeocoderProvider google"`
	GeocoderTimeout  time.Duration `validate:"gt=0"`
	GeocoderPacing   time.Duration `validate:"gte=0"`
	GeoCountry       string
	GeoCacheSize     int `validate:"gte=0"`

	// Weather.
	OpenWeatherAPIKey string
	WeatherTTL        time.Duration `validate:"gt=0"`
	WeatherTimeout    time.Duration `validate:"gt=0"`
	WeatherCacheSize  int           `validate:"gte=0"`
	Municipalities    []string

	DisciplinePriority []string

	// Board publishing; disabled when KafkaBrokers is empty.
	KafkaBrokers    []string
	KafkaBoardTopic string `validate:"required"`

	rosterErr error
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SheetID:         strings.TrimSpace(os.Getenv("SHEET_ID")),
		SheetName:       sharedcfg.EnvOrDefault("SHEET_NAME", "Sheet1"),
		RefreshSchedule: sharedcfg.EnvOrDefault("REFRESH_SCHEDULE", "@every 5m30s"),

		MapboxToken:      os.Getenv("MAPBOX_TOKEN"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeoCountry:       sharedcfg.EnvOrDefault("GEO_COUNTRY", "Brasil"),

		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		Municipalities:    parseList(os.Getenv("WEATHER_MUNICIPALITIES"), DefaultMunicipalities),

		DisciplinePriority: parseList(os.Getenv("DISCIPLINE_PRIORITY"), domain.DefaultDisciplinePriority),

		KafkaBoardTopic: sharedcfg.EnvOrDefault("KAFKA_BOARD_TOPIC", "site-board"),
	}
	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}
	cfg.GeocoderProvider = geocoderProvider(cfg)

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"ROSTER_TTL", 5 * time.Minute, &cfg.RosterTTL},
		{"ROSTER_TIMEOUT", 10 * time.Second, &cfg.RosterTimeout},
		{"GEOCODER_TIMEOUT", 10 * time.Second, &cfg.GeocoderTimeout},
		{"GEOCODER_PACING", time.Second, &cfg.GeocoderPacing},
		{"WEATHER_TTL", 30 * time.Minute, &cfg.WeatherTTL},
		{"WEATHER_TIMEOUT", 10 * time.Second, &cfg.WeatherTimeout},
	}
	for _, d := range durations {
		if *d.dest, err = parseDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.GeoCacheSize, err = parseInt("GEO_CACHE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.WeatherCacheSize, err = parseInt("WEATHER_CACHE_SIZE", 256); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.GoogleCredentials, cfg.rosterErr = parseCredentials(os.Getenv("GOOGLE_CREDENTIALS"))
	if cfg.rosterErr == nil && cfg.SheetID == "" {
		cfg.rosterErr = ErrSheetIDMissing
	}

	return cfg, nil
}

// RosterErr reports why the roster source cannot be used, or nil.
func (c *Config) RosterErr() error {
	return c.rosterErr
}

// PublishEnabled reports whether boards are published to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// geocoderProvider honours GEOCODER_PROVIDER, otherwise picks the first
// provider with credentials.
func geocoderProvider(cfg *Config) string {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("GEOCODER_PROVIDER"))); v != "" {
		return v
	}
	switch {
	case cfg.MapboxToken != "":
		return ProviderMapbox
	case cfg.GoogleMapsAPIKey != "":
		return ProviderGoogle
	default:
		return ProviderNone
	}
}

// parseCredentials accepts the service account key as raw JSON or as
// base64-encoded JSON.
func parseCredentials(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrCredentialsMissing
	}
	data := []byte(raw)
	if !bytes.HasPrefix(data, []byte("{")) {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, ErrCredentialsInvalid
		}
		data = decoded
	}
	if !json.Valid(data) {
		return nil, ErrCredentialsInvalid
	}
	return data, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

// parseList splits a comma-separated value, dropping blanks. An empty value
// yields a copy of def.
func parseList(s string, def []string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return slices.Clone(def)
	}
	return out
}
