package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ambient-clock/internal/assistant"
	"ambient-clock/internal/cache"
	"ambient-clock/internal/metrics"
	"ambient-clock/internal/storage"
	"ambient-clock/internal/weather"
)

// WeatherService is the cached OpenWeather facade.
type WeatherService interface {
	Configured() bool
	Current(ctx context.Context, q weather.Query) (*weather.Current, error)
	Forecast(ctx context.Context, q weather.Query) (*weather.Forecast, error)
	OneCall(ctx context.Context, q weather.Query) (*weather.OneCall, error)
	AirQuality(ctx context.Context, lat, lon float64) (*weather.AirQuality, error)
	Geocode(ctx context.Context, name string) ([]weather.GeocodeResult, error)
}

type Assistant interface {
	Configured() bool
	WeatherSummary(ctx context.Context, req assistant.SummaryRequest) (string, error)
	Chat(ctx context.Context, req assistant.ChatRequest) (string, error)
	DailyBriefing(ctx context.Context, req assistant.BriefingRequest) (string, error)
}

type SnapshotStore interface {
	GetLatestSnapshot() (*storage.AstronomySnapshot, error)
	GetSnapshotsWithLimit(limit int) ([]storage.AstronomySnapshot, error)
	GetSnapshotsByRange(from, to time.Time) ([]storage.AstronomySnapshot, error)
	GetDailyStats(date time.Time) (*storage.DailyStats, error)
}

type CollectorStatus interface {
	GetLatest() *storage.AstronomySnapshot
	IsCollecting() bool
}

type Server struct {
	router     *gin.Engine
	server     *http.Server
	port       int
	weather    WeatherService
	assistant  Assistant
	db         SnapshotStore
	collector  CollectorStatus
	conditions weather.Provider
	wallpapers *wallpaperSource
	limiter    *rateLimiter
	limits     RateLimits
	now        func() time.Time
}

// RateLimits are requests per minute per client IP; zero disables a limit.
type RateLimits struct {
	Current   int
	Forecast  int
	OneCall   int
	Air       int
	Geocode   int
	Summary   int
	Chat      int
	Briefing  int
	Astronomy int
	Wallpaper int
}

// ServerConfig leaves the database, collector and condition provider
// optional; the matching routes answer 503 without them.
type ServerConfig struct {
	Port        int
	CORSOrigins []string
	RateLimits  RateLimits
	Weather     WeatherService
	Assistant   Assistant
	Database    SnapshotStore
	Collector   CollectorStatus
	Conditions  weather.Provider
	Cache       cache.Cache
	Unsplash    string
	BingMarket  string
	Now         func() time.Time
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(gin.Logger())
	router.Use(corsMiddleware(cfg.CORSOrigins))

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	wallpaperCache := cfg.Cache
	if wallpaperCache == nil {
		wallpaperCache = cache.NewMemory("wallpaper", 50)
	}

	s := &Server{
		router:     router,
		port:       cfg.Port,
		weather:    cfg.Weather,
		assistant:  cfg.Assistant,
		db:         cfg.Database,
		collector:  cfg.Collector,
		conditions: cfg.Conditions,
		wallpapers: newWallpaperSource(wallpaperCache, cfg.Unsplash, cfg.BingMarket),
		limiter:    newRateLimiter(now),
		limits:     cfg.RateLimits,
		now:        now,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthHandler)

		api.GET("/weather/current", s.limit("current", s.limits.Current), s.currentWeatherHandler)
		api.GET("/weather/forecast", s.limit("forecast", s.limits.Forecast), s.forecastHandler)
		api.GET("/weather/onecall", s.limit("onecall", s.limits.OneCall), s.oneCallHandler)
		api.GET("/weather/air-quality", s.limit("air_quality", s.limits.Air), s.airQualityHandler)
		api.GET("/geocode", s.limit("geocode", s.limits.Geocode), s.geocodeHandler)

		api.POST("/ai/weather-summary", s.limit("summary", s.limits.Summary), s.weatherSummaryHandler)
		api.POST("/ai/chat", s.limit("chat", s.limits.Chat), s.chatHandler)
		api.POST("/ai/daily-briefing", s.limit("briefing", s.limits.Briefing), s.dailyBriefingHandler)

		api.GET("/astronomy", s.limit("astronomy", s.limits.Astronomy), s.astronomyHandler)
		api.GET("/background/wallpaper", s.limit("wallpaper", s.limits.Wallpaper), s.backgroundWallpaperHandler)

		api.GET("/snapshots", s.snapshotsHandler)
		api.GET("/snapshots/latest", s.latestSnapshotHandler)
		api.GET("/snapshots/daily", s.dailyStatsHandler)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("API server starting on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) healthHandler(c *gin.Context) {
	collecting := false
	if s.collector != nil {
		collecting = s.collector.IsCollecting()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"services": gin.H{
			"weather_api": s.weather != nil && s.weather.Configured(),
			"gemini_api":  s.assistant != nil && s.assistant.Configured(),
		},
		"collecting": collecting,
	})
}

// writeError maps package sentinel errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, err.Error()
	switch {
	case errors.Is(err, weather.ErrNotConfigured):
		status, message = http.StatusServiceUnavailable, "Weather API not configured"
	case errors.Is(err, assistant.ErrNotConfigured):
		status, message = http.StatusServiceUnavailable, "Gemini API not configured"
	case errors.Is(err, assistant.ErrInvalidRequest):
		status = http.StatusBadRequest
		message = strings.TrimPrefix(message, assistant.ErrInvalidRequest.Error()+": ")
	case errors.Is(err, weather.ErrUpstream), errors.Is(err, assistant.ErrUpstream):
		status = http.StatusBadGateway
	case errors.Is(err, storage.ErrNotFound):
		status, message = http.StatusNotFound, "No snapshots available yet"
	}

	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", requestIDFrom(c), c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": message})
}
