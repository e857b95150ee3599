package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ambient-clock/internal/metrics"
)

const openWeatherBaseURL = "https://api.openweathermap.org"

var (
	ErrNotConfigured = errors.New("weather api not configured")
	ErrUpstream      = errors.New("weather upstream failed")
)

type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenWeatherClient(apiKey string, timeout time.Duration) *OpenWeatherClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenWeatherClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: openWeatherBaseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithBaseURL points the client at another host, e.g. a test server.
func (c *OpenWeatherClient) WithBaseURL(base string) *OpenWeatherClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

func (c *OpenWeatherClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *OpenWeatherClient) Current(ctx context.Context, q Query) (*Current, error) {
	var out Current
	if err := c.get(ctx, "/data/2.5/weather", coordQuery(q, true), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *OpenWeatherClient) Forecast(ctx context.Context, q Query) (*Forecast, error) {
	var out Forecast
	if err := c.get(ctx, "/data/2.5/forecast", coordQuery(q, true), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *OpenWeatherClient) OneCall(ctx context.Context, q Query) (*OneCall, error) {
	query := coordQuery(q, true)
	query.Set("exclude", "minutely")

	var out OneCall
	if err := c.get(ctx, "/data/3.0/onecall", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *OpenWeatherClient) AirQuality(ctx context.Context, lat, lon float64) (*AirQuality, error) {
	var out AirQuality
	if err := c.get(ctx, "/data/2.5/air_pollution", coordQuery(Query{Lat: lat, Lon: lon}, false), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *OpenWeatherClient) Geocode(ctx context.Context, name string, limit int) ([]GeocodeResult, error) {
	if limit <= 0 {
		limit = 5
	}
	query := url.Values{}
	query.Set("q", name)
	query.Set("limit", strconv.Itoa(limit))

	var out []GeocodeResult
	if err := c.get(ctx, "/geo/1.0/direct", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OpenWeatherClient) get(ctx context.Context, path string, query url.Values, dst any) (err error) {
	if !c.Configured() {
		return ErrNotConfigured
	}
	defer func() { metrics.Upstream("openweather", err) }()

	query.Set("appid", c.apiKey)
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("openweather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("openweather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("openweather bad status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("openweather decode: %w", err)
	}
	return nil
}

func coordQuery(q Query, withUnits bool) url.Values {
	query := url.Values{}
	query.Set("lat", formatCoord(q.Lat))
	query.Set("lon", formatCoord(q.Lon))
	if withUnits {
		query.Set("units", normalizeUnits(q.Units))
	}
	return query
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func normalizeUnits(units string) string {
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "imperial":
		return "imperial"
	case "standard":
		return "standard"
	default:
		return "metric"
	}
}

// ConditionsFromCurrent reduces a current weather response to the summary
// used for wallpapers and snapshots.
func ConditionsFromCurrent(provider string, cur *Current) *Conditions {
	if cur == nil {
		return nil
	}
	out := &Conditions{
		Provider:   provider,
		Clouds:     cur.Clouds.All,
		Sunrise:    unixOrZero(cur.Sys.Sunrise),
		Sunset:     unixOrZero(cur.Sys.Sunset),
		ObservedAt: unixOrZero(cur.Dt),
	}
	if len(cur.Weather) > 0 {
		out.Condition = cur.Weather[0].Main
		out.Description = cur.Weather[0].Description
	}
	if out.Condition == "" {
		out.Condition = conditionFromDescription(out.Description)
	}
	if cur.Rain != nil {
		out.Rain1h = cur.Rain.OneHour
		out.Rain3h = cur.Rain.ThreeHour
	}
	return out
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func conditionFromDescription(desc string) string {
	d := strings.ToLower(desc)
	switch {
	case strings.Contains(d, "thunder"):
		return "Thunderstorm"
	case strings.Contains(d, "drizzle"):
		return "Drizzle"
	case strings.Contains(d, "rain"):
		return "Rain"
	case strings.Contains(d, "snow"):
		return "Snow"
	case strings.Contains(d, "fog"), strings.Contains(d, "mist"):
		return "Fog"
	case strings.Contains(d, "cloud"):
		return "Clouds"
	case strings.Contains(d, "clear"):
		return "Clear"
	default:
		return ""
	}
}
