package storage

import (
	"time"

	"gorm.io/gorm"

	"ambient-clock/internal/astronomy"
	"ambient-clock/internal/weather"
)

type AstronomySnapshot struct {
	gorm.Model
	Timestamp time.Time `gorm:"index" json:"timestamp"`

	// Location
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Sun
	Declination    float64    `json:"declination"`
	DayLengthHours float64    `json:"day_length_hours"`
	Sunrise        *time.Time `json:"sunrise,omitempty"`
	Sunset         *time.Time `json:"sunset,omitempty"`

	// Moon
	MoonPhase        float64 `json:"moon_phase"`
	MoonAgeDays      float64 `json:"moon_age_days"`
	MoonPhaseName    string  `json:"moon_phase_name"`
	MoonIllumination float64 `json:"moon_illumination"`

	// Weather, when a provider was reachable
	WeatherProvider    string `json:"weather_provider,omitempty"`
	WeatherCondition   string `json:"weather_condition,omitempty"`
	WeatherDescription string `json:"weather_description,omitempty"`
	CloudCover         *int   `json:"cloud_cover,omitempty"`
}

// NewSnapshot flattens a report computed at one instant for c. cond may be nil.
func NewSnapshot(at time.Time, c astronomy.Coordinate, report astronomy.Report, cond *weather.Conditions) *AstronomySnapshot {
	s := &AstronomySnapshot{
		Timestamp:        at.UTC(),
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
		Declination:      report.Sun.Declination,
		DayLengthHours:   report.Sun.DayLengthHours,
		MoonPhase:        report.Moon.Phase,
		MoonAgeDays:      report.Moon.AgeDays,
		MoonPhaseName:    string(report.Moon.PhaseName),
		MoonIllumination: report.Moon.Illumination,
	}
	if report.Times != nil {
		s.Sunrise = report.Times.Sunrise
		s.Sunset = report.Times.Sunset
	}
	if cond != nil {
		clouds := cond.Clouds
		s.WeatherProvider = cond.Provider
		s.WeatherCondition = cond.Condition
		s.WeatherDescription = cond.Description
		s.CloudCover = &clouds
	}
	return s
}

type DailyStats struct {
	Date                time.Time `json:"date"`
	SnapshotsCount      int64     `json:"snapshots_count"`
	DayLengthHours      float64   `json:"day_length_hours"`
	AvgMoonIllumination float64   `json:"avg_moon_illumination"`
	MoonPhaseName       string    `json:"moon_phase_name"`
}
