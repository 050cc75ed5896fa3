package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-anomaly-etl/internal/domain"
	"github.com/couchcryptid/weather-anomaly-etl/internal/observability"
)

// Client fetches the current weather reading from the Open-Meteo forecast API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	lat, lon   float64
	retries    int
	retryDelay time.Duration
	loc        *time.Location
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client. Reported timestamps are converted
// to the station's local civil time; if the zone database is unavailable the
// API's own zone is kept.
func NewClient(lat, lon float64, timeout time.Duration, retries int, retryDelay time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		logger.Warn("load station timezone failed, keeping source zone", "error", err)
		loc = nil
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    "https://api.open-meteo.com/v1/forecast",
		lat:        lat,
		lon:        lon,
		retries:    retries,
		retryDelay: retryDelay,
		loc:        loc,
		clock:      clockwork.NewRealClock(),
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchCurrent returns the current observation, retrying transient failures
// a fixed number of times with a fixed delay between attempts. A response
// without a timestamp yields (nil, nil): there is nothing to append but the
// run can continue. All attempts failing returns the last error.
func (c *Client) FetchCurrent(ctx context.Context) (*domain.Observation, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		obs, err := c.fetchOnce(ctx)
		if err == nil {
			if obs == nil {
				c.metrics.LiveFetchAttempts.WithLabelValues("empty").Inc()
				c.logger.Warn("live reading missing timestamp, skipping")
				return nil, nil
			}
			c.metrics.LiveFetchAttempts.WithLabelValues("success").Inc()
			return obs, nil
		}

		c.metrics.LiveFetchAttempts.WithLabelValues("error").Inc()
		c.logger.Warn("live fetch attempt failed",
			"attempt", attempt,
			"max_attempts", c.retries,
			"error", err)
		lastErr = err

		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-c.clock.After(c.retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("fetch current weather after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context) (*domain.Observation, error) {
	params := url.Values{
		"latitude":        {strconv.FormatFloat(c.lat, 'f', -1, 64)},
		"longitude":       {strconv.FormatFloat(c.lon, 'f', -1, 64)},
		"current_weather": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("current weather request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.LiveFetchDuration.Observe(c.clock.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if payload.CurrentWeather.Time == "" {
		return nil, nil
	}

	ts, err := parseTime(payload.CurrentWeather.Time)
	if err != nil {
		return nil, fmt.Errorf("parse observation time %q: %w", payload.CurrentWeather.Time, err)
	}
	if c.loc != nil {
		local := ts.In(c.loc)
		// Strip the zone so downstream formatting stays civil time.
		ts = time.Date(local.Year(), local.Month(), local.Day(),
			local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
	}

	return &domain.Observation{
		TemperatureC: payload.CurrentWeather.Temperature,
		Time:         ts,
		Windspeed:    payload.CurrentWeather.Windspeed,
	}, nil
}

// parseTime accepts the two timestamp shapes Open-Meteo has returned over
// time: full RFC 3339 and the minute-resolution "2006-01-02T15:04" form.
// Timestamps without an offset are treated as UTC.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", s, time.UTC)
}

// Open-Meteo API response types.

type response struct {
	CurrentWeather currentWeather `json:"current_weather"`
}

type currentWeather struct {
	Temperature float64  `json:"temperature"`
	Windspeed   *float64 `json:"windspeed"`
	Time        string   `json:"time"`
}
