// Package openweather implements domain.WeatherSource with the OpenWeatherMap
// current-weather API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/painel-obra/internal/domain"
	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

var (
	errMissingKey  = errors.New("openweather api key is not configured")
	errServerError = errors.New("server error")
)

// Client fetches current conditions by city name. Transport failures and 5xx
// responses trip a circuit breaker; 4xx answers (unknown city) do not.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		IsSuccessful: func(err error) bool {
			return err == nil || (errors.Is(err, domain.ErrUpstreamStatus) && !errors.Is(err, errServerError))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		circuit:    cb,
		logger:     logger,
	}
}

// CurrentWeather returns the current reading for city, in metric units with
// a Portuguese description. Non-2xx answers wrap domain.ErrUpstreamStatus.
func (c *Client) CurrentWeather(ctx context.Context, city string) (domain.WeatherReading, error) {
	if c.apiKey == "" {
		return domain.WeatherReading{}, errMissingKey
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", c.apiKey)
	values.Set("lang", "pt_br")
	values.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return domain.WeatherReading{}, fmt.Errorf("create request: %w", err)
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.WeatherReading{}, fmt.Errorf("openweather circuit open: %w", err)
		}
		return domain.WeatherReading{}, err
	}
	return result.(domain.WeatherReading), nil
}

func (c *Client) do(req *http.Request) (domain.WeatherReading, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherReading{}, fmt.Errorf("openweather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 500 {
			return domain.WeatherReading{}, fmt.Errorf("%w: %w: %d", domain.ErrUpstreamStatus, errServerError, resp.StatusCode)
		}
		return domain.WeatherReading{}, fmt.Errorf("%w: %d: %s", domain.ErrUpstreamStatus, resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.WeatherReading{}, fmt.Errorf("decode response: %w", err)
	}

	reading := domain.WeatherReading{
		TemperatureC: payload.Main.Temp,
		HumidityPct:  payload.Main.Humidity,
	}
	if len(payload.Weather) > 0 {
		reading.Description = payload.Weather[0].Description
	}
	return reading, nil
}

type response struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}
