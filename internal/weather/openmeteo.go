package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"ambient-clock/internal/metrics"
)

const openMeteoBaseURL = "https://api.open-meteo.com"

// OpenMeteoClient needs no API key. It serves condition summaries when
// OpenWeather is not configured.
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
}

func NewOpenMeteoClient(timeout time.Duration) *OpenMeteoClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenMeteoClient{
		baseURL: openMeteoBaseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *OpenMeteoClient) WithBaseURL(base string) *OpenMeteoClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Current  struct {
		Time          string  `json:"time"`
		WeatherCode   int     `json:"weather_code"`
		CloudCover    float64 `json:"cloud_cover"`
		Precipitation float64 `json:"precipitation"`
		Rain          float64 `json:"rain"`
		Showers       float64 `json:"showers"`
	} `json:"current"`
	Hourly struct {
		Time          []string  `json:"time"`
		Precipitation []float64 `json:"precipitation"`
	} `json:"hourly"`
	Daily struct {
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

func (c *OpenMeteoClient) Conditions(ctx context.Context, lat, lon float64) (_ *Conditions, err error) {
	defer func() { metrics.Upstream("openmeteo", err) }()

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.6f", lat))
	query.Set("longitude", fmt.Sprintf("%.6f", lon))
	query.Set("current", "weather_code,cloud_cover,precipitation,rain,showers")
	query.Set("hourly", "precipitation")
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", "auto")
	query.Set("forecast_days", "1")
	query.Set("past_days", "1")
	query.Set("precipitation_unit", "mm")

	endpoint := c.baseURL + "/v1/forecast?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("open-meteo request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open-meteo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("open-meteo bad status: %s", resp.Status)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("open-meteo decode: %w", err)
	}

	if strings.TrimSpace(payload.Current.Time) == "" {
		return nil, fmt.Errorf("open-meteo current data missing")
	}

	loc := openMeteoLocation(payload.Timezone)
	observed := parseOpenMeteoTime(payload.Current.Time, loc)
	sunrise, sunset := sunTimesFor(observed, loc, payload.Daily.Sunrise, payload.Daily.Sunset)

	rain1h := payload.Current.Precipitation
	if rain1h == 0 {
		rain1h = payload.Current.Rain + payload.Current.Showers
	}

	condition, description := OpenMeteoDescribe(payload.Current.WeatherCode)

	return &Conditions{
		Provider:    "openmeteo",
		Condition:   condition,
		Description: description,
		Clouds:      int(math.Round(payload.Current.CloudCover)),
		Rain1h:      rain1h,
		Rain3h:      precipitationSince(observed.Add(-3*time.Hour), observed, loc, payload.Hourly.Time, payload.Hourly.Precipitation),
		Sunrise:     sunrise,
		Sunset:      sunset,
		ObservedAt:  observed,
	}, nil
}

// openMeteoLocation resolves the "timezone" field; unknown zones read as UTC.
func openMeteoLocation(name string) *time.Location {
	if name = strings.TrimSpace(name); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// Open-Meteo reports local wall-clock times without an offset.
func parseOpenMeteoTime(value string, loc *time.Location) time.Time {
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// sunTimesFor returns the pair whose calendar day matches observed, or the
// pair nearest to it when the response covers other days only.
func sunTimesFor(observed time.Time, loc *time.Location, sunrises, sunsets []string) (time.Time, time.Time) {
	var bestRise, bestSet time.Time
	bestDays := math.MaxInt

	for i := 0; i < len(sunrises) && i < len(sunsets); i++ {
		rise := parseOpenMeteoTime(sunrises[i], loc)
		set := parseOpenMeteoTime(sunsets[i], loc)
		if rise.IsZero() || set.IsZero() {
			continue
		}
		days := dayDistance(observed, rise)
		if days == 0 {
			return rise, set
		}
		if days < bestDays {
			bestDays, bestRise, bestSet = days, rise, set
		}
	}
	return bestRise, bestSet
}

func dayDistance(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// precipitationSince sums hourly values stamped in (from, to].
func precipitationSince(from, to time.Time, loc *time.Location, stamps []string, values []float64) float64 {
	if len(stamps) != len(values) {
		return 0
	}
	total := 0.0
	for i, stamp := range stamps {
		t := parseOpenMeteoTime(stamp, loc)
		if t.IsZero() || !t.After(from) || t.After(to) {
			continue
		}
		total += values[i]
	}
	return total
}

type wmoGroup struct {
	codes       []int
	condition   string
	description string
}

var wmoGroups = []wmoGroup{
	{[]int{0}, "Clear", "clear sky"},
	{[]int{1}, "Clouds", "mainly clear"},
	{[]int{2}, "Clouds", "few clouds"},
	{[]int{3}, "Clouds", "overcast clouds"},
	{[]int{45, 48}, "Fog", "fog"},
	{[]int{51, 53, 55, 56, 57}, "Drizzle", "drizzle"},
	{[]int{61, 63, 65, 66, 67}, "Rain", "rain"},
	{[]int{71, 73, 75, 77}, "Snow", "snow"},
	{[]int{80, 81, 82}, "Rain", "rain showers"},
	{[]int{85, 86}, "Snow", "snow showers"},
	{[]int{95}, "Thunderstorm", "thunderstorm"},
	{[]int{96, 99}, "Thunderstorm", "thunderstorm with hail"},
}

// OpenMeteoDescribe maps a WMO weather code to a condition group and an
// OpenWeather-style description.
func OpenMeteoDescribe(code int) (string, string) {
	for _, g := range wmoGroups {
		if slices.Contains(g.codes, code) {
			return g.condition, g.description
		}
	}
	return "Unknown", "unknown conditions"
}
