package weather

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ambient-clock/internal/cache"
	"ambient-clock/internal/metrics"
)

const (
	CurrentTTL    = 10 * time.Minute
	AirQualityTTL = 10 * time.Minute
	ForecastTTL   = 30 * time.Minute
	OneCallTTL    = 30 * time.Minute
)

// Service fronts OpenWeather with a response cache and demo fallbacks.
type Service struct {
	client   *OpenWeatherClient
	cache    cache.Cache
	demo     *DemoGenerator
	demoMode bool
}

type ServiceConfig struct {
	Client   *OpenWeatherClient
	Cache    cache.Cache
	Demo     *DemoGenerator
	DemoMode bool
}

func NewService(cfg ServiceConfig) *Service {
	demo := cfg.Demo
	if demo == nil {
		demo = NewDemoGenerator(time.Now().UnixNano(), nil)
	}
	c := cfg.Cache
	if c == nil {
		c = cache.NewMemory("weather", 100)
	}
	return &Service{
		client:   cfg.Client,
		cache:    c,
		demo:     demo,
		demoMode: cfg.DemoMode,
	}
}

func (s *Service) Configured() bool { return s.client.Configured() }

func (s *Service) DemoMode() bool { return s.demoMode }

func cacheKey(kind string, q Query) string {
	return fmt.Sprintf("%s_%s_%s_%s", kind, formatCoord(q.Lat), formatCoord(q.Lon), normalizeUnits(q.Units))
}

func (s *Service) Current(ctx context.Context, q Query) (*Current, error) {
	return fetchWithDemo(ctx, s, cacheKey("current", q), CurrentTTL, "current",
		func(ctx context.Context) (*Current, error) { return s.client.Current(ctx, q) },
		func() *Current { return s.demo.Current(q) },
	)
}

func (s *Service) Forecast(ctx context.Context, q Query) (*Forecast, error) {
	return fetchWithDemo(ctx, s, cacheKey("forecast", q), ForecastTTL, "forecast",
		func(ctx context.Context) (*Forecast, error) { return s.client.Forecast(ctx, q) },
		func() *Forecast { return s.demo.Forecast(q) },
	)
}

// OneCall always falls back to demo data, even with demo mode off.
func (s *Service) OneCall(ctx context.Context, q Query) (*OneCall, error) {
	key := cacheKey("onecall", q)

	var cached OneCall
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	if s.client.Configured() {
		data, err := s.client.OneCall(ctx, q)
		if err == nil {
			s.store(ctx, key, data, OneCallTTL)
			return data, nil
		}
		log.Printf("OneCall fetch failed, serving demo data: %v", err)
	}

	metrics.DemoResponses.WithLabelValues("onecall").Inc()
	data := s.demo.OneCall(q)
	s.store(ctx, key, data, OneCallTTL)
	return data, nil
}

// AirQuality serves uncached demo data without an API key, and errors when
// the upstream call fails.
func (s *Service) AirQuality(ctx context.Context, lat, lon float64) (*AirQuality, error) {
	key := fmt.Sprintf("air_%s_%s", formatCoord(lat), formatCoord(lon))

	var cached AirQuality
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	if !s.client.Configured() {
		metrics.DemoResponses.WithLabelValues("air_quality").Inc()
		return s.demo.AirQuality(), nil
	}

	data, err := s.client.AirQuality(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("%w: air quality: %v", ErrUpstream, err)
	}
	s.store(ctx, key, data, AirQualityTTL)
	return data, nil
}

func (s *Service) Geocode(ctx context.Context, name string) ([]GeocodeResult, error) {
	name = strings.TrimSpace(name)
	if !s.client.Configured() {
		return nil, ErrNotConfigured
	}
	results, err := s.client.Geocode(ctx, name, 5)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode: %v", ErrUpstream, err)
	}
	return results, nil
}

// Conditions implements Provider on top of the cached current weather.
func (s *Service) Conditions(ctx context.Context, lat, lon float64) (*Conditions, error) {
	cur, err := s.Current(ctx, Query{Lat: lat, Lon: lon})
	if err != nil {
		return nil, err
	}
	provider := "openweather"
	if cur.Name == demoLocationName {
		provider = "demo"
	}
	return ConditionsFromCurrent(provider, cur), nil
}

// fetchWithDemo implements the current/forecast policy: cache, then the
// provider, then demo data when demo mode is on.
func fetchWithDemo[T any](
	ctx context.Context,
	s *Service,
	key string,
	ttl time.Duration,
	kind string,
	fetch func(context.Context) (*T, error),
	demo func() *T,
) (*T, error) {
	var cached T
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	if s.client.Configured() {
		data, err := fetch(ctx)
		if err == nil {
			s.store(ctx, key, data, ttl)
			return data, nil
		}
		if !s.demoMode {
			return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, kind, err)
		}
		log.Printf("Weather %s fetch failed, serving demo data: %v", kind, err)
	}

	if !s.demoMode {
		return nil, ErrNotConfigured
	}

	metrics.DemoResponses.WithLabelValues(kind).Inc()
	data := demo()
	s.store(ctx, key, data, ttl)
	return data, nil
}

// Cache failures degrade to a miss; the cache is only an optimisation.
func (s *Service) lookup(ctx context.Context, key string, dst any) bool {
	ok, err := cache.GetJSON(ctx, s.cache, key, dst)
	if err != nil {
		log.Printf("Weather cache read %s failed: %v", key, err)
		return false
	}
	return ok
}

func (s *Service) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := cache.SetJSON(ctx, s.cache, key, value, ttl); err != nil {
		log.Printf("Weather cache write %s failed: %v", key, err)
	}
}
