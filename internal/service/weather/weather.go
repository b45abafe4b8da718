// Package weather derives water-stress alerts from OpenWeatherMap readings.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"jalsaathi/internal/logging"
	"jalsaathi/internal/models"
	"jalsaathi/internal/redis"
)

const (
	defaultBaseURL     = "https://api.openweathermap.org/data/2.5"
	defaultHTTPTimeout = 10 * time.Second
	alertCacheTTL      = 10 * time.Minute
	alertCachePrefix   = "weather:alerts:"

	highTemperatureC = 35.0
	lowHumidityPct   = 30.0
)

var (
	ErrNotConfigured     = errors.New("weather: api key not configured")
	ErrInvalidCoordinate = errors.New("weather: invalid coordinate")
)

// Reading is the subset of the current-weather payload alerts depend on.
type Reading struct {
	Temperature float64 `json:"temp"`
	Humidity    float64 `json:"humidity"`
}

type currentWeather struct {
	Main    *Reading `json:"main"`
	Message string   `json:"message"`
}

// Client queries the current-weather endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *redis.Client
}

// NewClient builds a client. cache may be nil.
func NewClient(apiKey, baseURL string, timeout time.Duration, cache *redis.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

// Alerts returns the alerts for a coordinate; an empty slice means none apply.
func (c *Client) Alerts(ctx context.Context, lat, lon float64) ([]models.WeatherAlert, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinate
	}
	key := cacheKey(lat, lon)
	if alerts, ok := c.cached(ctx, key); ok {
		return alerts, nil
	}
	reading, err := c.Current(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	alerts := Derive(reading)
	c.store(ctx, key, alerts)
	return alerts, nil
}

// Current fetches the metric reading at a coordinate.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Reading, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return Reading{}, fmt.Errorf("weather: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("weather: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Reading{}, fmt.Errorf("weather: read response: %w", err)
	}
	var payload currentWeather
	if err := json.Unmarshal(body, &payload); err != nil {
		return Reading{}, fmt.Errorf("weather: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("weather: unexpected status %d: %s", resp.StatusCode, payload.Message)
	}
	if payload.Main == nil {
		return Reading{}, errors.New("weather: response missing main block")
	}
	return *payload.Main, nil
}

// Derive applies the alert thresholds to a reading.
func Derive(r Reading) []models.WeatherAlert {
	alerts := []models.WeatherAlert{}
	if r.Temperature > highTemperatureC {
		alerts = append(alerts, models.WeatherAlert{
			Type:        "temperature",
			Severity:    "high",
			Description: "High temperature alert - potential water stress",
		})
	}
	if r.Humidity < lowHumidityPct {
		alerts = append(alerts, models.WeatherAlert{
			Type:        "humidity",
			Severity:    "warning",
			Description: "Low humidity alert - increased water demand likely",
		})
	}
	return alerts
}

// cacheKey rounds to two decimals (about 1km) so nearby requests share an entry.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%s%.2f:%.2f", alertCachePrefix, lat, lon)
}

func (c *Client) cached(ctx context.Context, key string) ([]models.WeatherAlert, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			logging.L().WithError(err).Warn("weather: read alert cache failed")
		}
		return nil, false
	}
	var alerts []models.WeatherAlert
	if err := json.Unmarshal([]byte(raw), &alerts); err != nil {
		return nil, false
	}
	return alerts, true
}

func (c *Client) store(ctx context.Context, key string, alerts []models.WeatherAlert) {
	if c.cache == nil {
		return
	}
	payload, err := json.Marshal(alerts)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, payload, alertCacheTTL); err != nil {
		logging.L().WithError(err).Warn("weather: write alert cache failed")
	}
}
