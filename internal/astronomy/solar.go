package astronomy

import (
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

const axialTilt = 23.45

type SolarEstimate struct {
	Declination    float64 `json:"declination"`
	DayLengthHours float64 `json:"day_length_hours"`
}

type SunTimes struct {
	Sunrise *time.Time `json:"sunrise,omitempty"`
	Sunset  *time.Time `json:"sunset,omitempty"`
}

// Declination approximates the solar declination in degrees for a 1-indexed
// day of the year. The +10 shift puts the minimum on the December solstice.
func Declination(dayOfYear int) float64 {
	return -axialTilt * math.Cos((2*math.Pi/365)*float64(dayOfYear+10))
}

// DayLength returns hours of daylight from the sunrise equation. Polar day and
// polar night saturate to 24 and 0.
func DayLength(latitude, declination float64) float64 {
	latRad := latitude * math.Pi / 180
	decRad := declination * math.Pi / 180

	x := -math.Tan(latRad) * math.Tan(decRad)
	if math.IsNaN(x) || x < -1 || x > 1 {
		if latitude*declination > 0 {
			return 24
		}
		return 0
	}

	hourAngle := (180 / math.Pi) * math.Acos(x)
	return 2 * hourAngle / 15
}

func EstimateSunForDay(latitude float64, dayOfYear int) SolarEstimate {
	dec := Declination(dayOfYear)
	return SolarEstimate{
		Declination:    round(dec, 2),
		DayLengthHours: round(DayLength(latitude, dec), 2),
	}
}

// EstimateSun uses the calendar day of now in now's own location.
func EstimateSun(latitude float64, now time.Time) SolarEstimate {
	return EstimateSunForDay(latitude, now.YearDay())
}

// SunriseSunset returns UTC sunrise and sunset for the calendar day of now.
// Either side is nil when the sun does not cross the horizon that day.
func SunriseSunset(c Coordinate, now time.Time) SunTimes {
	rise, set := sunrise.SunriseSunset(c.Latitude, c.Longitude, now.Year(), now.Month(), now.Day())

	var times SunTimes
	if !rise.IsZero() {
		r := rise.UTC()
		times.Sunrise = &r
	}
	if !set.IsZero() {
		s := set.UTC()
		times.Sunset = &s
	}
	return times
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
