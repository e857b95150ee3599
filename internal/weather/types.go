package weather

import (
	"context"
	"time"
)

// Provider resolves a condition summary for a coordinate. It backs wallpaper
// selection and collector snapshots.
type Provider interface {
	Conditions(ctx context.Context, lat, lon float64) (*Conditions, error)
}

type Conditions struct {
	Provider    string    `json:"provider"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Clouds      int       `json:"clouds"`
	Rain1h      float64   `json:"rain_1h,omitempty"`
	Rain3h      float64   `json:"rain_3h,omitempty"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
	ObservedAt  time.Time `json:"observed_at"`
}

func (d *Conditions) IsDaylight(at time.Time) bool {
	if d == nil || d.Sunrise.IsZero() || d.Sunset.IsZero() {
		return false
	}
	return at.After(d.Sunrise) && at.Before(d.Sunset)
}

// Query identifies a weather request. Units is one of metric, imperial or
// standard.
type Query struct {
	Lat   float64
	Lon   float64
	Units string
}

type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type Condition struct {
	ID          int    `json:"id,omitempty"`
	Main        string `json:"main,omitempty"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type MainReading struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min,omitempty"`
	TempMax   float64 `json:"temp_max,omitempty"`
	Humidity  int     `json:"humidity"`
	Pressure  int     `json:"pressure,omitempty"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   int     `json:"deg,omitempty"`
	Gust  float64 `json:"gust,omitempty"`
}

type Clouds struct {
	All int `json:"all"`
}

type Precipitation struct {
	OneHour   float64 `json:"1h,omitempty"`
	ThreeHour float64 `json:"3h,omitempty"`
}

type Sys struct {
	Country string `json:"country,omitempty"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
}

// Current mirrors /data/2.5/weather.
type Current struct {
	Coord      Coord          `json:"coord"`
	Weather    []Condition    `json:"weather"`
	Main       MainReading    `json:"main"`
	Wind       Wind           `json:"wind"`
	Clouds     Clouds         `json:"clouds"`
	Rain       *Precipitation `json:"rain,omitempty"`
	Visibility int            `json:"visibility"`
	Dt         int64          `json:"dt,omitempty"`
	Timezone   int64          `json:"timezone"`
	Sys        Sys            `json:"sys"`
	Name       string         `json:"name"`
}

type ForecastItem struct {
	Dt      int64       `json:"dt"`
	Main    MainReading `json:"main"`
	Weather []Condition `json:"weather"`
	Pop     float64     `json:"pop"`
	Wind    *Wind       `json:"wind,omitempty"`
	DtTxt   string      `json:"dt_txt,omitempty"`
}

type City struct {
	Name     string `json:"name"`
	Country  string `json:"country,omitempty"`
	Timezone int64  `json:"timezone,omitempty"`
}

// Forecast mirrors /data/2.5/forecast (5 days in 3 hour steps).
type Forecast struct {
	List []ForecastItem `json:"list"`
	City City           `json:"city"`
}

type OneCallCurrent struct {
	Dt         int64       `json:"dt"`
	Sunrise    int64       `json:"sunrise"`
	Sunset     int64       `json:"sunset"`
	Temp       float64     `json:"temp"`
	FeelsLike  float64     `json:"feels_like"`
	Pressure   int         `json:"pressure"`
	Humidity   int         `json:"humidity"`
	Uvi        float64     `json:"uvi"`
	Clouds     int         `json:"clouds"`
	Visibility int         `json:"visibility"`
	WindSpeed  float64     `json:"wind_speed"`
	WindDeg    int         `json:"wind_deg"`
	Weather    []Condition `json:"weather"`
}

type OneCallHour struct {
	Dt         int64       `json:"dt"`
	Temp       float64     `json:"temp"`
	FeelsLike  float64     `json:"feels_like"`
	Pressure   int         `json:"pressure"`
	Humidity   int         `json:"humidity"`
	Uvi        float64     `json:"uvi"`
	Clouds     int         `json:"clouds"`
	Visibility int         `json:"visibility"`
	WindSpeed  float64     `json:"wind_speed"`
	WindDeg    int         `json:"wind_deg"`
	Pop        float64     `json:"pop"`
	Weather    []Condition `json:"weather"`
}

type DailyTemp struct {
	Day   float64 `json:"day"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Night float64 `json:"night"`
	Eve   float64 `json:"eve"`
	Morn  float64 `json:"morn"`
}

type DailyFeelsLike struct {
	Day   float64 `json:"day"`
	Night float64 `json:"night"`
	Eve   float64 `json:"eve"`
	Morn  float64 `json:"morn"`
}

type OneCallDay struct {
	Dt        int64          `json:"dt"`
	Sunrise   int64          `json:"sunrise"`
	Sunset    int64          `json:"sunset"`
	Temp      DailyTemp      `json:"temp"`
	FeelsLike DailyFeelsLike `json:"feels_like"`
	Pressure  int            `json:"pressure"`
	Humidity  int            `json:"humidity"`
	WindSpeed float64        `json:"wind_speed"`
	WindDeg   int            `json:"wind_deg"`
	Clouds    int            `json:"clouds"`
	Pop       float64        `json:"pop"`
	Uvi       float64        `json:"uvi"`
	Weather   []Condition    `json:"weather"`
}

type Alert struct {
	SenderName  string   `json:"sender_name"`
	Event       string   `json:"event"`
	Start       int64    `json:"start"`
	End         int64    `json:"end"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// OneCall mirrors /data/3.0/onecall with minutely data excluded.
type OneCall struct {
	Lat            float64        `json:"lat"`
	Lon            float64        `json:"lon"`
	Timezone       string         `json:"timezone"`
	TimezoneOffset int64          `json:"timezone_offset"`
	Current        OneCallCurrent `json:"current"`
	Hourly         []OneCallHour  `json:"hourly"`
	Daily          []OneCallDay   `json:"daily"`
	Alerts         []Alert        `json:"alerts"`
}

type AirComponents struct {
	CO   float64 `json:"co"`
	NO   float64 `json:"no,omitempty"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2,omitempty"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	NH3  float64 `json:"nh3,omitempty"`
}

type AirQualityEntry struct {
	Main struct {
		AQI int `json:"aqi"`
	} `json:"main"`
	Components AirComponents `json:"components"`
	Dt         int64         `json:"dt,omitempty"`
}

// AirQuality mirrors /data/2.5/air_pollution.
type AirQuality struct {
	Coord *Coord            `json:"coord,omitempty"`
	List  []AirQualityEntry `json:"list"`
}

type GeocodeResult struct {
	Name       string            `json:"name"`
	LocalNames map[string]string `json:"local_names,omitempty"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Country    string            `json:"country"`
	State      string            `json:"state,omitempty"`
}
