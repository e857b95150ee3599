package astronomy

import (
	"math"
	"testing"
	"time"
)

func TestMoonAtReferenceEpoch(t *testing.T) {
	got := EstimateMoon(ReferenceNewMoon)
	if got.AgeDays != 0 || got.Phase != 0 {
		t.Fatalf("age/phase at epoch = %v/%v, want 0/0", got.AgeDays, got.Phase)
	}
	if got.PhaseName != NewMoon {
		t.Fatalf("phase name = %q, want %q", got.PhaseName, NewMoon)
	}
	if got.Illumination != 0 {
		t.Fatalf("illumination = %v, want 0", got.Illumination)
	}
}

func TestMoonAtHalfSynodicMonth(t *testing.T) {
	// 14.765 days
	got := EstimateMoon(ReferenceNewMoon.Add(1275696 * time.Second))
	if got.PhaseName != FullMoon {
		t.Fatalf("phase name = %q, want %q", got.PhaseName, FullMoon)
	}
	if math.Abs(got.Illumination-100) > 3 {
		t.Fatalf("illumination = %v, want ~100", got.Illumination)
	}
}

func TestMoonPeriodicity(t *testing.T) {
	period := time.Duration(SynodicMonth * 24 * float64(time.Hour))
	base := time.Date(2024, time.March, 3, 7, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		t0 := base.Add(time.Duration(i) * 23 * time.Hour)
		a := EstimateMoon(t0)
		b := EstimateMoon(t0.Add(period))
		// Phases within the tolerance on opposite sides of 0 are neighbours.
		diff := math.Abs(a.Phase - b.Phase)
		if diff > 0.5 {
			diff = 1 - diff
		}
		if diff > 0.002 {
			t.Fatalf("phase(%v) = %v, phase(+period) = %v", t0, a.Phase, b.Phase)
		}
	}
}

func TestMoonAgeBeforeEpochIsNonNegative(t *testing.T) {
	dates := []time.Time{
		time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC),
		time.Date(1969, time.July, 20, 20, 17, 0, 0, time.UTC),
		time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		age := MoonAge(d)
		if age < 0 || age >= SynodicMonth {
			t.Fatalf("MoonAge(%v) = %v, want value in [0, %v)", d, age, SynodicMonth)
		}
	}

	// Six days before the epoch is 23.53 days into the previous cycle.
	age := MoonAge(ReferenceNewMoon.Add(-6 * 24 * time.Hour))
	if math.Abs(age-23.53) > 1e-6 {
		t.Fatalf("MoonAge(epoch - 6d) = %v, want 23.53", age)
	}
}

func TestPhaseBins(t *testing.T) {
	tests := []struct {
		fraction float64
		want     PhaseName
	}{
		{0, NewMoon},
		{0.124, NewMoon},
		{0.125, WaxingCrescent},
		{0.25, FirstQuarter},
		{0.375, WaxingGibbous},
		{0.5, FullMoon},
		{0.625, WaningGibbous},
		{0.75, LastQuarter},
		{0.875, WaningCrescent},
		{0.999, WaningCrescent},
	}
	for _, tt := range tests {
		if got := PhaseFor(tt.fraction); got != tt.want {
			t.Errorf("PhaseFor(%v) = %q, want %q", tt.fraction, got, tt.want)
		}
	}
}

func TestIlluminationSymmetry(t *testing.T) {
	for f := 0.0; f < 1; f += 0.01 {
		a, b := Illumination(f), Illumination(1-f)
		if math.Abs(a-b) > 1e-9 {
			t.Fatalf("Illumination(%v) = %v, Illumination(%v) = %v", f, a, 1-f, b)
		}
		if a < 0 || a > 100 {
			t.Fatalf("Illumination(%v) = %v out of range", f, a)
		}
	}
	if got := Illumination(0.25); math.Abs(got-50) > 1e-9 {
		t.Fatalf("Illumination(first quarter) = %v, want 50", got)
	}
}

func TestEstimateMoonRounding(t *testing.T) {
	got := EstimateMoon(time.Date(2025, time.May, 17, 9, 41, 13, 0, time.UTC))
	check := func(name string, v float64, places int) {
		p := math.Pow(10, float64(places))
		if math.Abs(v*p-math.Round(v*p)) > 1e-6 {
			t.Errorf("%s = %v has more than %d decimals", name, v, places)
		}
	}
	check("phase", got.Phase, 3)
	check("age_days", got.AgeDays, 1)
	check("illumination", got.Illumination, 1)
	if got.Phase < 0 || got.Phase >= 1 {
		t.Errorf("phase = %v, want [0, 1)", got.Phase)
	}
}
