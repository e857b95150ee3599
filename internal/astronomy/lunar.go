package astronomy

import (
	"math"
	"time"
)

const SynodicMonth = 29.53

// ReferenceNewMoon is the epoch the lunar age is counted from.
var ReferenceNewMoon = time.Date(2000, time.January, 6, 0, 0, 0, 0, time.UTC)

type PhaseName string

const (
	NewMoon        PhaseName = "New Moon"
	WaxingCrescent PhaseName = "Waxing Crescent"
	FirstQuarter   PhaseName = "First Quarter"
	WaxingGibbous  PhaseName = "Waxing Gibbous"
	FullMoon       PhaseName = "Full Moon"
	WaningGibbous  PhaseName = "Waning Gibbous"
	LastQuarter    PhaseName = "Last Quarter"
	WaningCrescent PhaseName = "Waning Crescent"
)

var phaseNames = [8]PhaseName{
	NewMoon,
	WaxingCrescent,
	FirstQuarter,
	WaxingGibbous,
	FullMoon,
	WaningGibbous,
	LastQuarter,
	WaningCrescent,
}

type LunarEstimate struct {
	Phase        float64   `json:"phase"`
	AgeDays      float64   `json:"age_days"`
	PhaseName    PhaseName `json:"phase_name"`
	Illumination float64   `json:"illumination"`
}

// MoonAge is the number of days since the last new moon, in [0, SynodicMonth).
// Dates before the reference epoch wrap instead of going negative.
func MoonAge(now time.Time) float64 {
	days := float64(now.UnixMilli()-ReferenceNewMoon.UnixMilli()) / 86_400_000
	age := math.Mod(days, SynodicMonth)
	if age < 0 {
		age += SynodicMonth
	}
	if age >= SynodicMonth {
		age = 0
	}
	return age
}

// PhaseFor maps a phase fraction in [0, 1) onto one of eight equal bins.
func PhaseFor(fraction float64) PhaseName {
	idx := int(math.Floor(fraction*8)) % 8
	if idx < 0 {
		idx += 8
	}
	return phaseNames[idx]
}

// Illumination is the lit percentage of the disk for a phase fraction:
// 0 at new moon, 100 at full, symmetric about 0.5.
func Illumination(fraction float64) float64 {
	return (1 - math.Cos(2*math.Pi*fraction)) / 2 * 100
}

func EstimateMoon(now time.Time) LunarEstimate {
	age := MoonAge(now)
	fraction := age / SynodicMonth

	phase := round(fraction, 3)
	if phase >= 1 {
		phase = 0
	}

	return LunarEstimate{
		Phase:        phase,
		AgeDays:      round(age, 1),
		PhaseName:    PhaseFor(fraction),
		Illumination: round(Illumination(fraction), 1),
	}
}
