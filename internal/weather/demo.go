package weather

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

var (
	demoConditions = []string{"clear sky", "few clouds", "scattered clouds", "light rain", "overcast clouds"}
	demoIcons      = []string{"01d", "02d", "03d", "10d", "04d"}
)

const demoLocationName = "Demo Location"

// DemoGenerator produces plausible placeholder weather when no provider is
// configured or the provider is down.
type DemoGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewDemoGenerator(seed int64, now func() time.Time) *DemoGenerator {
	if now == nil {
		now = time.Now
	}
	return &DemoGenerator{
		rnd: rand.New(rand.NewSource(seed)),
		now: now,
	}
}

// intn returns a value in [lo, hi].
func (g *DemoGenerator) intn(lo, hi int) int {
	return lo + g.rnd.Intn(hi-lo+1)
}

func demoCondition(idx int) []Condition {
	return []Condition{{Description: demoConditions[idx], Icon: demoIcons[idx]}}
}

func (g *DemoGenerator) Current(q Query) *Current {
	g.mu.Lock()
	defer g.mu.Unlock()

	temp := g.intn(15, 25)
	if normalizeUnits(q.Units) == "imperial" {
		temp = g.intn(60, 80)
	}
	idx := g.rnd.Intn(len(demoConditions))

	now := g.now().UTC()
	sunrise := time.Date(now.Year(), now.Month(), now.Day(), 6, 30, 0, 0, time.UTC)
	sunset := time.Date(now.Year(), now.Month(), now.Day(), 18, 30, 0, 0, time.UTC)

	return &Current{
		Coord:   Coord{Lon: q.Lon, Lat: q.Lat},
		Weather: demoCondition(idx),
		Main: MainReading{
			Temp:      float64(temp),
			FeelsLike: float64(temp - 2),
			Humidity:  g.intn(40, 80),
			Pressure:  g.intn(1010, 1025),
		},
		Wind:       Wind{Speed: float64(g.intn(2, 10)), Deg: g.intn(0, 360)},
		Clouds:     Clouds{All: g.intn(0, 100)},
		Visibility: 10000,
		Dt:         now.Unix(),
		Sys:        Sys{Sunrise: sunrise.Unix(), Sunset: sunset.Unix()},
		Name:       demoLocationName,
	}
}

func (g *DemoGenerator) Forecast(q Query) *Forecast {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	imperial := normalizeUnits(q.Units) == "imperial"

	list := make([]ForecastItem, 0, 40)
	for i := 0; i < 40; i++ {
		idx := g.rnd.Intn(4)
		temp := g.intn(12, 28)
		if imperial {
			temp = g.intn(55, 85)
		}
		list = append(list, ForecastItem{
			Dt: now.Add(time.Duration(i*3) * time.Hour).Unix(),
			Main: MainReading{
				Temp:      float64(temp),
				FeelsLike: float64(temp - 2),
				Humidity:  g.intn(40, 80),
			},
			Weather: demoCondition(idx),
			Pop:     g.rnd.Float64() * 0.5,
			Wind:    &Wind{Speed: float64(g.intn(2, 9))},
		})
	}

	return &Forecast{List: list, City: City{Name: demoLocationName}}
}

func (g *DemoGenerator) OneCall(q Query) *OneCall {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC().Unix()
	baseTemp := 20.0
	if normalizeUnits(q.Units) == "imperial" {
		baseTemp = 68
	}

	current := OneCallCurrent{
		Dt:         now,
		Sunrise:    now - 21600,
		Sunset:     now + 21600,
		Temp:       baseTemp + g.rnd.Float64()*5,
		FeelsLike:  baseTemp + g.rnd.Float64()*3,
		Pressure:   1013 + g.rnd.Intn(10),
		Humidity:   50 + g.rnd.Intn(30),
		Uvi:        g.rnd.Float64() * 8,
		Clouds:     g.rnd.Intn(100),
		Visibility: 10000,
		WindSpeed:  2 + g.rnd.Float64()*8,
		WindDeg:    g.rnd.Intn(360),
		Weather:    demoCondition(0),
	}

	hourly := make([]OneCallHour, 48)
	for i := range hourly {
		dt := now + int64(i)*3600
		hourOfDay := time.Unix(dt, 0).UTC().Hour()
		variation := math.Sin(float64(hourOfDay-14)*math.Pi/12) * 5
		uvi := 0.0
		if i < 12 {
			uvi = g.rnd.Float64() * 8
		}
		hourly[i] = OneCallHour{
			Dt:         dt,
			Temp:       baseTemp + variation + g.rnd.Float64()*2,
			FeelsLike:  baseTemp + variation + g.rnd.Float64()*2 - 2,
			Pressure:   1013 + g.rnd.Intn(10),
			Humidity:   50 + g.rnd.Intn(30),
			Uvi:        uvi,
			Clouds:     g.rnd.Intn(100),
			Visibility: 10000,
			WindSpeed:  2 + g.rnd.Float64()*8,
			WindDeg:    g.rnd.Intn(360),
			Pop:        g.rnd.Float64() * 0.5,
			Weather:    demoCondition(g.rnd.Intn(4)),
		}
	}

	daily := make([]OneCallDay, 8)
	for i := range daily {
		dt := now + int64(i)*86400
		dayTemp := baseTemp + g.rnd.Float64()*8
		daily[i] = OneCallDay{
			Dt:      dt,
			Sunrise: dt - 21600,
			Sunset:  dt + 21600,
			Temp: DailyTemp{
				Day:   dayTemp,
				Min:   dayTemp - 5 - g.rnd.Float64()*3,
				Max:   dayTemp + 5 + g.rnd.Float64()*3,
				Night: dayTemp - 8,
				Eve:   dayTemp - 2,
				Morn:  dayTemp - 5,
			},
			FeelsLike: DailyFeelsLike{
				Day:   dayTemp - 2,
				Night: dayTemp - 10,
				Eve:   dayTemp - 4,
				Morn:  dayTemp - 7,
			},
			Pressure:  1013 + g.rnd.Intn(10),
			Humidity:  50 + g.rnd.Intn(30),
			WindSpeed: 2 + g.rnd.Float64()*8,
			WindDeg:   g.rnd.Intn(360),
			Clouds:    g.rnd.Intn(100),
			Pop:       g.rnd.Float64() * 0.5,
			Uvi:       g.rnd.Float64() * 10,
			Weather:   demoCondition(g.rnd.Intn(4)),
		}
	}

	return &OneCall{
		Lat:            q.Lat,
		Lon:            q.Lon,
		Timezone:       "UTC",
		TimezoneOffset: 0,
		Current:        current,
		Hourly:         hourly,
		Daily:          daily,
		Alerts:         []Alert{},
	}
}

func (g *DemoGenerator) AirQuality() *AirQuality {
	g.mu.Lock()
	defer g.mu.Unlock()

	var entry AirQualityEntry
	entry.Main.AQI = g.intn(1, 3)
	entry.Components = AirComponents{
		PM25: g.rnd.Float64()*20 + 5,
		PM10: g.rnd.Float64()*30 + 10,
		O3:   g.rnd.Float64()*50 + 20,
		NO2:  g.rnd.Float64()*30 + 5,
	}
	return &AirQuality{List: []AirQualityEntry{entry}}
}
