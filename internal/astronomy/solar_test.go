package astronomy

import (
	"math"
	"testing"
	"time"
)

func TestDayLengthWithinBounds(t *testing.T) {
	for lat := -90.0; lat <= 90.0; lat += 2.5 {
		for day := 1; day <= 366; day++ {
			got := DayLength(lat, Declination(day))
			if math.IsNaN(got) || got < 0 || got > 24 {
				t.Fatalf("DayLength(%v, day %d) = %v, want value in [0, 24]", lat, day, got)
			}
		}
	}
}

func TestDayLengthAtEquator(t *testing.T) {
	for day := 1; day <= 366; day++ {
		got := EstimateSunForDay(0, day).DayLengthHours
		if math.Abs(got-12) > 0.1 {
			t.Fatalf("day %d: day length at equator = %v, want ~12", day, got)
		}
	}
}

func TestDeclinationRange(t *testing.T) {
	minDay, maxDay := 0, 0
	minDec, maxDec := math.Inf(1), math.Inf(-1)
	for day := 1; day <= 365; day++ {
		dec := Declination(day)
		if dec < -axialTilt-1e-9 || dec > axialTilt+1e-9 {
			t.Fatalf("Declination(%d) = %v out of range", day, dec)
		}
		if dec < minDec {
			minDec, minDay = dec, day
		}
		if dec > maxDec {
			maxDec, maxDay = dec, day
		}
	}

	if minDay < 350 || minDay > 360 {
		t.Errorf("minimum declination on day %d, want near 356", minDay)
	}
	if maxDay < 168 || maxDay > 178 {
		t.Errorf("maximum declination on day %d, want near 173", maxDay)
	}
	if math.Abs(minDec+axialTilt) > 0.01 || math.Abs(maxDec-axialTilt) > 0.01 {
		t.Errorf("extremes = (%v, %v), want ~(-23.45, 23.45)", minDec, maxDec)
	}
}

func TestPolarSaturation(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		day  int
		want float64
	}{
		{"arctic summer", 80, 173, 24},
		{"arctic winter", 80, 356, 0},
		{"antarctic summer", -80, 356, 24},
		{"antarctic winter", -80, 173, 0},
		{"north pole", 90, 173, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateSunForDay(tt.lat, tt.day).DayLengthHours
			if got != tt.want {
				t.Fatalf("day length = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLondonSolstices(t *testing.T) {
	summer := EstimateSunForDay(51.5, 172)
	if math.Abs(summer.Declination-23.4) > 0.1 {
		t.Errorf("summer declination = %v, want ~23.4", summer.Declination)
	}
	if summer.DayLengthHours < 16 || summer.DayLengthHours > 17 {
		t.Errorf("summer day length = %v, want 16-17h", summer.DayLengthHours)
	}

	winter := EstimateSunForDay(51.5, 355)
	if math.Abs(winter.Declination+23.4) > 0.1 {
		t.Errorf("winter declination = %v, want ~-23.4", winter.Declination)
	}
	if winter.DayLengthHours < 7 || winter.DayLengthHours > 8 {
		t.Errorf("winter day length = %v, want 7-8h", winter.DayLengthHours)
	}
}

func TestEstimateSunUsesLocalCalendarDay(t *testing.T) {
	// 23:30 UTC on Dec 31 is already Jan 1 in Tokyo.
	loc := time.FixedZone("JST", 9*3600)
	utc := time.Date(2023, time.December, 31, 23, 30, 0, 0, time.UTC)

	got := EstimateSun(51.5, utc.In(loc))
	want := EstimateSunForDay(51.5, 1)
	if got != want {
		t.Fatalf("EstimateSun in JST = %+v, want %+v", got, want)
	}

	got = EstimateSun(51.5, utc)
	want = EstimateSunForDay(51.5, 365)
	if got != want {
		t.Fatalf("EstimateSun in UTC = %+v, want %+v", got, want)
	}
}

func TestRoundingTwoPlaces(t *testing.T) {
	est := EstimateSunForDay(40, 100)
	for _, v := range []float64{est.Declination, est.DayLengthHours} {
		if math.Abs(v*100-math.Round(v*100)) > 1e-6 {
			t.Fatalf("%v has more than two decimals", v)
		}
	}
}

func TestSunriseSunset(t *testing.T) {
	london := Coordinate{Latitude: 51.5, Longitude: -0.12}
	times := SunriseSunset(london, time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC))
	if times.Sunrise == nil || times.Sunset == nil {
		t.Fatalf("expected sunrise and sunset, got %+v", times)
	}
	length := times.Sunset.Sub(*times.Sunrise).Hours()
	if length < 16 || length > 17.5 {
		t.Fatalf("London midsummer daylight = %.2fh, want 16-17.5h", length)
	}

	polar := SunriseSunset(Coordinate{Latitude: 85, Longitude: 10}, time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC))
	if polar.Sunrise != nil || polar.Sunset != nil {
		t.Fatalf("expected no sunrise or sunset in polar day, got %+v", polar)
	}
}
