// Package astronomy estimates the sun's declination, day length and the
// moon's synodic phase. Every function is pure and safe for concurrent use.
package astronomy

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects non-finite or out-of-range values. Zero is accepted here;
// the HTTP boundary applies the stricter zero-means-missing rule.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return ErrInvalidCoordinate
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

type Report struct {
	Sun   SolarEstimate `json:"sun"`
	Moon  LunarEstimate `json:"moon"`
	Times *SunTimes     `json:"times,omitempty"`
}

type Options struct {
	SunTimes bool
}

// Calculate derives both estimates from the single instant now. Longitude only
// affects the optional sunrise and sunset times.
func Calculate(c Coordinate, now time.Time, opts Options) Report {
	report := Report{
		Sun:  EstimateSun(c.Latitude, now),
		Moon: EstimateMoon(now),
	}
	if opts.SunTimes {
		times := SunriseSunset(c, now)
		report.Times = &times
	}
	return report
}
