package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUpstreamStatus marks a weather response with a non-success HTTP status.
var ErrUpstreamStatus = errors.New("weather source: unexpected status")

// WeatherReading is the raw current-weather reading for a city.
type WeatherReading struct {
	TemperatureC float64
	Description  string
	HumidityPct  float64
}

// WeatherSource fetches current weather by city name.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, city string) (WeatherReading, error)
}

// Forecast is the display form of a reading: one-decimal °C, capitalized
// condition, integer humidity.
type Forecast struct {
	TemperatureC float64 `json:"temperature_c"`
	Condition    string  `json:"condition"`
	HumidityPct  int     `json:"humidity_pct"`
}

// TemperatureLabel renders the temperature as "27.3°C".
func (f Forecast) TemperatureLabel() string {
	return fmt.Sprintf("%.1f°C", f.TemperatureC)
}

// HumidityLabel renders the humidity as "64%".
func (f Forecast) HumidityLabel() string {
	return fmt.Sprintf("%d%%", f.HumidityPct)
}

// ForecastResult is the per-city answer of a forecast request: either a
// forecast or a user-facing error message.
type ForecastResult struct {
	City      string    `json:"city"`
	Forecast  *Forecast `json:"forecast,omitempty"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
}

// OK reports whether the result carries a forecast.
func (r ForecastResult) OK() bool {
	return r.Forecast != nil && r.Error == ""
}

// NewForecast normalizes a raw reading for display.
func NewForecast(r WeatherReading) Forecast {
	return Forecast{
		TemperatureC: math.Round(r.TemperatureC*10) / 10,
		Condition:    capitalize(r.Description),
		HumidityPct:  int(math.Round(r.HumidityPct)),
	}
}

// ForecastError builds the error result shown for city. Non-success statuses
// and transport failures get different messages.
func ForecastError(city string, err error) ForecastResult {
	msg := fmt.Sprintf("Erro ao obter previsão para %s.", city)
	if errors.Is(err, ErrUpstreamStatus) {
		msg = fmt.Sprintf("Não foi possível obter a previsão para %s.", city)
	}
	return ForecastResult{City: city, Error: msg}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.BrazilianPortuguese).String(s[:size]) +
		cases.Lower(language.BrazilianPortuguese).String(s[size:])
}
