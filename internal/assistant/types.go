package assistant

import "ambient-clock/internal/weather"

// Snapshot is the flattened current weather the dashboard sends along with
// AI requests. Pointer fields are optional and render as N/A when absent.
type Snapshot struct {
	Temp        *float64 `json:"temp,omitempty"`
	FeelsLike   *float64 `json:"feels_like,omitempty"`
	Description string   `json:"description,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	WindSpeed   *float64 `json:"wind_speed,omitempty"`
	Sunrise     string   `json:"sunrise,omitempty"`
	Sunset      string   `json:"sunset,omitempty"`
	Location    string   `json:"location,omitempty"`
}

type HourlyEntry struct {
	Dt      int64               `json:"dt"`
	Temp    *float64            `json:"temp,omitempty"`
	Pop     float64             `json:"pop"`
	Weather []weather.Condition `json:"weather,omitempty"`
}

type DailyEntry struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Min *float64 `json:"min,omitempty"`
		Max *float64 `json:"max,omitempty"`
	} `json:"temp"`
	Weather []weather.Condition `json:"weather,omitempty"`
}

// ForecastEntry is a pre-formatted forecast row used by the daily briefing.
type ForecastEntry struct {
	Time        string   `json:"time,omitempty"`
	Temp        *float64 `json:"temp,omitempty"`
	Description string   `json:"description,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SummaryRequest accepts the snapshot under either "weather" or "current".
type SummaryRequest struct {
	Weather  *Snapshot     `json:"weather,omitempty"`
	Current  *Snapshot     `json:"current,omitempty"`
	Hourly   []HourlyEntry `json:"hourly,omitempty"`
	Daily    []DailyEntry  `json:"daily,omitempty"`
	Location string        `json:"location,omitempty"`
	Style    string        `json:"style,omitempty"`
}

type ChatRequest struct {
	Message  string        `json:"message"`
	Weather  *Snapshot     `json:"weather,omitempty"`
	Current  *Snapshot     `json:"current,omitempty"`
	Hourly   []HourlyEntry `json:"hourly,omitempty"`
	Daily    []DailyEntry  `json:"daily,omitempty"`
	Location string        `json:"location,omitempty"`
	History  []ChatMessage `json:"history,omitempty"`
}

type BriefingRequest struct {
	Weather  *Snapshot       `json:"weather,omitempty"`
	Forecast []ForecastEntry `json:"forecast,omitempty"`
	Timezone string          `json:"timezone,omitempty"`
}

func pickSnapshot(primary, fallback *Snapshot) *Snapshot {
	if primary != nil {
		return primary
	}
	return fallback
}
