package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ambient-clock/internal/assistant"
	"ambient-clock/internal/astronomy"
	"ambient-clock/internal/cache"
	"ambient-clock/internal/storage"
	"ambient-clock/internal/weather"
)

var testNow = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

type echoGenerator struct{ reply string }

func (g echoGenerator) Generate(context.Context, string) (string, error) { return g.reply, nil }

type stubConditions struct {
	cond *weather.Conditions
	err  error
}

func (s stubConditions) Conditions(context.Context, float64, float64) (*weather.Conditions, error) {
	return s.cond, s.err
}

type testDeps struct {
	apiKey    string
	baseURL   string
	demoMode  bool
	generator assistant.Generator
	db        SnapshotStore
	limits    RateLimits
	cond      weather.Provider
}

func newTestServer(t *testing.T, deps testDeps) *Server {
	t.Helper()
	client := weather.NewOpenWeatherClient(deps.apiKey, time.Second)
	if deps.baseURL != "" {
		client.WithBaseURL(deps.baseURL)
	}
	svc := weather.NewService(weather.ServiceConfig{
		Client:   client,
		Cache:    cache.NewMemory("api-test-weather", 100),
		Demo:     weather.NewDemoGenerator(7, func() time.Time { return testNow }),
		DemoMode: deps.demoMode,
	})
	cfg := ServerConfig{
		Port:        0,
		CORSOrigins: []string{"http://localhost:3000"},
		RateLimits:  deps.limits,
		Weather:     svc,
		Assistant:   assistant.NewService(deps.generator, cache.NewMemory("api-test-ai", 10)),
		Conditions:  deps.cond,
		Cache:       cache.NewMemory("api-test-wallpaper", 10),
		Now:         func() time.Time { return testNow },
	}
	if deps.db != nil {
		cfg.Database = deps.db
	}
	return NewServer(cfg)
}

func do(t *testing.T, s *Server, method, target string, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testDeps{apiKey: "k", generator: echoGenerator{}})

	for _, path := range []string{"/health", "/api/health"} {
		rec := do(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		var body struct {
			Status    string          `json:"status"`
			Timestamp string          `json:"timestamp"`
			Services  map[string]bool `json:"services"`
		}
		decode(t, rec, &body)
		if body.Status != "healthy" || !body.Services["weather_api"] || !body.Services["gemini_api"] {
			t.Fatalf("%s body = %+v", path, body)
		}
		if body.Timestamp != "2026-03-20T12:00:00Z" {
			t.Fatalf("timestamp = %q", body.Timestamp)
		}
	}

	bare := newTestServer(t, testDeps{})
	var body struct {
		Services map[string]bool `json:"services"`
	}
	decode(t, do(t, bare, http.MethodGet, "/api/health", ""), &body)
	if body.Services["weather_api"] || body.Services["gemini_api"] {
		t.Fatalf("services should be false without keys: %+v", body.Services)
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, testDeps{})

	rec := do(t, s, http.MethodGet, "/health", "")
	if id := rec.Header().Get(requestIDHeader); len(id) != 36 {
		t.Fatalf("generated request id = %q", id)
	}

	rec = do(t, s, http.MethodGet, "/health", "", requestIDHeader, "abc-123")
	if id := rec.Header().Get(requestIDHeader); id != "abc-123" {
		t.Fatalf("request id = %q, want echo", id)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, testDeps{})

	rec := do(t, s, http.MethodGet, "/health", "", "Origin", "http://localhost:3000")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin = %q", got)
	}

	rec = do(t, s, http.MethodGet, "/health", "", "Origin", "http://evil.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestWeatherValidation(t *testing.T) {
	s := newTestServer(t, testDeps{demoMode: true})

	tests := []struct {
		target string
		want   string
	}{
		{"/api/weather/current", errCoordsRequired},
		{"/api/weather/current?lat=51.5", errCoordsRequired},
		{"/api/weather/forecast?lat=abc&lon=1", errCoordsRequired},
		{"/api/weather/onecall?lat=91&lon=1", errCoordsRequired},
		{"/api/weather/air-quality?lat=1&lon=181", errCoordsRequired},
		{"/api/weather/current?lat=1&lon=1&units=kelvin", errBadUnits.Error()},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodGet, tt.target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", tt.target, rec.Code)
			continue
		}
		if got := errorOf(t, rec); got != tt.want {
			t.Errorf("%s error = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestWeatherDemoResponses(t *testing.T) {
	s := newTestServer(t, testDeps{demoMode: true})

	rec := do(t, s, http.MethodGet, "/api/weather/current?lat=40.4&lon=-3.7&units=imperial", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var cur weather.Current
	decode(t, rec, &cur)
	if cur.Name != "Demo Location" || cur.Main.Temp < 60 || cur.Main.Temp > 80 {
		t.Fatalf("demo current = %+v", cur)
	}

	rec = do(t, s, http.MethodGet, "/api/weather/onecall?lat=40.4&lon=-3.7", "")
	var oc weather.OneCall
	decode(t, rec, &oc)
	if rec.Code != http.StatusOK || len(oc.Hourly) != 48 {
		t.Fatalf("onecall status=%d hourly=%d", rec.Code, len(oc.Hourly))
	}

	rec = do(t, s, http.MethodGet, "/api/weather/air-quality?lat=40.4&lon=-3.7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("air quality status = %d", rec.Code)
	}
}

func TestWeatherNotConfigured(t *testing.T) {
	s := newTestServer(t, testDeps{demoMode: false})

	rec := do(t, s, http.MethodGet, "/api/weather/forecast?lat=1&lon=1", "")
	if rec.Code != http.StatusServiceUnavailable || errorOf(t, rec) != "Weather API not configured" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestWeatherUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	s := newTestServer(t, testDeps{apiKey: "k", baseURL: upstream.URL})
	rec := do(t, s, http.MethodGet, "/api/weather/current?lat=1&lon=1", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestGeocode(t *testing.T) {
	s := newTestServer(t, testDeps{demoMode: true})

	rec := do(t, s, http.MethodGet, "/api/geocode", "")
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "q parameter required" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/geocode?q=Paris", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 without key", rec.Code)
	}
}

func TestAstronomy(t *testing.T) {
	s := newTestServer(t, testDeps{})

	for _, target := range []string{
		"/api/astronomy",
		"/api/astronomy?lat=51.5",
		"/api/astronomy?lat=0&lon=10",
		"/api/astronomy?lat=10&lon=0",
		"/api/astronomy?lat=95&lon=10",
	} {
		rec := do(t, s, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest || errorOf(t, rec) != errCoordsRequired {
			t.Errorf("%s status=%d body=%s", target, rec.Code, rec.Body.String())
		}
	}

	rec := do(t, s, http.MethodGet, "/api/astronomy?lat=51.5&lon=-0.12", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got astronomy.Report
	decode(t, rec, &got)
	want := astronomy.Calculate(astronomy.Coordinate{Latitude: 51.5, Longitude: -0.12}, testNow, astronomy.Options{})
	if got.Sun != want.Sun || got.Moon != want.Moon {
		t.Fatalf("report = %+v, want %+v", got, want)
	}
	if got.Times != nil {
		t.Fatalf("times should be omitted unless requested")
	}
	if strings.Contains(rec.Body.String(), "times") {
		t.Fatalf("times key should be absent: %s", rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/astronomy?lat=51.5&lon=-0.12&times=true", "")
	decode(t, rec, &got)
	if got.Times == nil || got.Times.Sunrise == nil || got.Times.Sunset == nil {
		t.Fatalf("expected sun times: %s", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, testDeps{limits: RateLimits{Astronomy: 2}})

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodGet, "/api/astronomy?lat=1&lon=1", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := do(t, s, http.MethodGet, "/api/astronomy?lat=1&lon=1", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}

	// Other routes keep their own budget.
	if rec := do(t, s, http.MethodGet, "/api/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	now := testNow
	l := newRateLimiter(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !l.allow("r", "1.2.3.4", 3) {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.allow("r", "1.2.3.4", 3) {
		t.Fatalf("fourth request should be limited")
	}
	if !l.allow("r", "5.6.7.8", 3) {
		t.Fatalf("other clients have their own bucket")
	}
	now = now.Add(20 * time.Second)
	if !l.allow("r", "1.2.3.4", 3) {
		t.Fatalf("one token should refill after 20s")
	}
}

func TestAIRoutes(t *testing.T) {
	unconfigured := newTestServer(t, testDeps{})
	rec := do(t, unconfigured, http.MethodPost, "/api/ai/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusServiceUnavailable || errorOf(t, rec) != "Gemini API not configured" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	s := newTestServer(t, testDeps{generator: echoGenerator{reply: "Bring a jacket."}})

	rec = do(t, s, http.MethodPost, "/api/ai/weather-summary", `{"weather":{"temp":12,"description":"drizzle"},"style":"eli5"}`)
	var summary map[string]string
	decode(t, rec, &summary)
	if rec.Code != http.StatusOK || summary["summary"] != "Bring a jacket." {
		t.Fatalf("summary status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/ai/weather-summary", `{"style":"friendly"}`)
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "weather data required" {
		t.Fatalf("summary without weather status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/ai/chat", `{"message":""}`)
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "message required" {
		t.Fatalf("chat status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/ai/chat", `{"message":"Is it windy?","history":[{"role":"user","content":"hi"}]}`)
	var chat map[string]string
	decode(t, rec, &chat)
	if rec.Code != http.StatusOK || chat["response"] != "Bring a jacket." {
		t.Fatalf("chat status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/ai/daily-briefing", `{"weather":{"temp":20},"forecast":[{"time":"15:00","temp":22}]}`)
	var briefing map[string]string
	decode(t, rec, &briefing)
	if rec.Code != http.StatusOK || briefing["briefing"] != "Bring a jacket." {
		t.Fatalf("briefing status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/ai/daily-briefing", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid body status = %d", rec.Code)
	}
}

func TestSnapshots(t *testing.T) {
	noDB := newTestServer(t, testDeps{})
	if rec := do(t, noDB, http.MethodGet, "/api/snapshots", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d without storage", rec.Code)
	}

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	defer db.Close()

	s := newTestServer(t, testDeps{db: db})

	if rec := do(t, s, http.MethodGet, "/api/snapshots/latest", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("latest on empty db status = %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/api/snapshots", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list status=%d body=%s", rec.Code, rec.Body.String())
	}

	coord := astronomy.Coordinate{Latitude: 48.85, Longitude: 2.35}
	for i := 0; i < 3; i++ {
		at := testNow.Add(time.Duration(i) * time.Hour)
		if err := db.SaveSnapshot(storage.NewSnapshot(at, coord, astronomy.Calculate(coord, at, astronomy.Options{}), nil)); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	var list []storage.AstronomySnapshot
	rec = do(t, s, http.MethodGet, "/api/snapshots?limit=2", "")
	decode(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("limit=2 returned %d", len(list))
	}

	rec = do(t, s, http.MethodGet, "/api/snapshots?from=2026-03-20T12:30:00Z&to=2026-03-20T15:00:00Z", "")
	decode(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("range returned %d", len(list))
	}

	if rec := do(t, s, http.MethodGet, "/api/snapshots?from=yesterday&to=today", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad range status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/snapshots?limit=ten", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}

	var latest storage.AstronomySnapshot
	rec = do(t, s, http.MethodGet, "/api/snapshots/latest", "")
	decode(t, rec, &latest)
	if !latest.Timestamp.Equal(testNow.Add(2 * time.Hour)) {
		t.Fatalf("latest timestamp = %v", latest.Timestamp)
	}

	var stats storage.DailyStats
	rec = do(t, s, http.MethodGet, "/api/snapshots/daily", "")
	decode(t, rec, &stats)
	if stats.SnapshotsCount != 3 {
		t.Fatalf("daily stats = %+v", stats)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testDeps{demoMode: true})
	do(t, s, http.MethodGet, "/api/weather/current?lat=1&lon=1", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ambient_clock_cache_lookups_total") {
		t.Fatalf("metrics status=%d", rec.Code)
	}
}

func TestWallpaperFromBing(t *testing.T) {
	var calls atomic.Int32
	var failing atomic.Bool
	bing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Get("idx") != "4" || r.URL.Query().Get("mkt") != "en-GB" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"images":[{"url":"/th?id=rain.jpg","title":"Rainy day","copyright":"© Someone"}]}`))
	}))
	defer bing.Close()

	s := newTestServer(t, testDeps{cond: stubConditions{cond: &weather.Conditions{Condition: "Rain", Description: "light rain"}}})
	s.wallpapers.bingBase = bing.URL
	clock := testNow
	s.wallpapers.now = func() time.Time { return clock }

	rec := do(t, s, http.MethodGet, "/api/background/wallpaper?lat=51.5&lon=-0.12&mkt=en-GB", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var payload wallpaperPayload
	decode(t, rec, &payload)
	if payload.Provider != "bing" || payload.URL != "https://www.bing.com/th?id=rain.jpg" || payload.Query != "rainy sky" {
		t.Fatalf("payload = %+v", payload)
	}

	do(t, s, http.MethodGet, "/api/background/wallpaper?lat=51.5&lon=-0.12&mkt=en-GB", "")
	if calls.Load() != 1 {
		t.Fatalf("second request should be cached, calls = %d", calls.Load())
	}

	// Past the TTL a failing refresh serves the stale image.
	clock = clock.Add(7 * time.Hour)
	failing.Store(true)
	rec = do(t, s, http.MethodGet, "/api/background/wallpaper?lat=51.5&lon=-0.12&mkt=en-GB", "")
	decode(t, rec, &payload)
	if rec.Code != http.StatusOK || payload.Title != "Rainy day" || calls.Load() != 2 {
		t.Fatalf("stale fallback status=%d payload=%+v calls=%d", rec.Code, payload, calls.Load())
	}
}

func TestWallpaperUnsplashFallsBackToBing(t *testing.T) {
	unsplash := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Client-ID secret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("query") == "clear sky" {
			_, _ = w.Write([]byte(`{"urls":{"regular":"https://img/clear.jpg"},"user":{"name":"Ana"},"alt_description":"blue sky"}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer unsplash.Close()
	bing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"images":[{"url":"https://bing/fog.jpg","title":"Fog"}]}`))
	}))
	defer bing.Close()

	provider := &switchingConditions{}
	s := newTestServer(t, testDeps{cond: provider})
	s.wallpapers.unsplashKey = "secret"
	s.wallpapers.unsplashBase = unsplash.URL
	s.wallpapers.bingBase = bing.URL

	provider.cond = &weather.Conditions{Condition: "Clear", Description: "clear sky"}
	var payload wallpaperPayload
	decode(t, do(t, s, http.MethodGet, "/api/background/wallpaper?lat=1&lon=1", ""), &payload)
	if payload.Provider != "unsplash" || payload.Credit != "Photo by Ana on Unsplash" || payload.Title != "blue sky" {
		t.Fatalf("unsplash payload = %+v", payload)
	}

	provider.cond = &weather.Conditions{Condition: "Fog", Description: "fog"}
	decode(t, do(t, s, http.MethodGet, "/api/background/wallpaper?lat=1&lon=1", ""), &payload)
	if payload.Provider != "bing" || payload.Market != "en-US" || payload.Query != "foggy landscape" {
		t.Fatalf("bing fallback payload = %+v", payload)
	}
}

type switchingConditions struct{ cond *weather.Conditions }

func (s *switchingConditions) Conditions(context.Context, float64, float64) (*weather.Conditions, error) {
	return s.cond, nil
}

func TestWallpaperWithoutWeather(t *testing.T) {
	bing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("idx") != "0" {
			t.Errorf("idx = %s, want default 0", r.URL.Query().Get("idx"))
		}
		_, _ = w.Write([]byte(`{"images":[{"url":"/today.jpg"}]}`))
	}))
	defer bing.Close()

	s := newTestServer(t, testDeps{cond: stubConditions{err: errors.New("offline")}})
	s.wallpapers.bingBase = bing.URL

	var payload wallpaperPayload
	decode(t, do(t, s, http.MethodGet, "/api/background/wallpaper?lat=1&lon=1", ""), &payload)
	if payload.Query != defaultBackgroundQuery {
		t.Fatalf("query = %q", payload.Query)
	}
}

func TestPickBackgroundChoice(t *testing.T) {
	tests := []struct {
		label string
		query string
		index int
	}{
		{"", defaultBackgroundQuery, 0},
		{"Thunderstorm thunderstorm with hail", "thunderstorm sky", 6},
		{"Rain heavy intensity rain", "heavy rain clouds", 5},
		{"Drizzle light intensity drizzle", "rainy sky", 4},
		{"Snow light snow", "snowy landscape", 5},
		{"Mist mist", "foggy landscape", 7},
		{"Clouds overcast clouds", "overcast sky", 3},
		{"Clouds scattered clouds", "partly cloudy sky", 2},
		{"Clear clear sky", "clear sky", 1},
		{"Tornado", defaultBackgroundQuery, 0},
	}
	for _, tt := range tests {
		got := pickBackgroundChoice(tt.label)
		if got.UnsplashQuery != tt.query || got.BingIndex != tt.index {
			t.Errorf("pickBackgroundChoice(%q) = %+v, want %q/%d", tt.label, got, tt.query, tt.index)
		}
	}
}
