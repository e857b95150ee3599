package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ambient-clock/internal/metrics"
	"ambient-clock/internal/weather"
)

const (
	unsplashBaseURL        = "https://api.unsplash.com"
	unsplashWallpaperTTL   = 2 * time.Hour
	defaultBackgroundQuery = "sky landscape"
)

type unsplashResponse struct {
	Urls struct {
		Regular string `json:"regular"`
		Full    string `json:"full"`
	} `json:"urls"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
	Description    string `json:"description"`
	AltDescription string `json:"alt_description"`
}

type backgroundChoice struct {
	UnsplashQuery string
	BingIndex     int
}

func (s *Server) backgroundWallpaperHandler(c *gin.Context) {
	ctx := c.Request.Context()
	choice := pickBackgroundChoice(s.currentConditionLabel(c))

	if s.wallpapers.unsplashKey != "" {
		payload, err := s.wallpapers.unsplash(ctx, choice.UnsplashQuery)
		if err == nil {
			c.JSON(http.StatusOK, payload)
			return
		}
		log.Printf("[%s] Unsplash fetch failed, falling back to Bing: %v", requestIDFrom(c), err)
	}

	market := s.wallpapers.sanitizeMarket(c.Query("mkt"))
	payload, err := s.wallpapers.bing(ctx, market, choice.BingIndex)
	if err != nil {
		log.Printf("[%s] Bing fetch failed: %v", requestIDFrom(c), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch wallpaper"})
		return
	}
	payload.Query = choice.UnsplashQuery
	c.JSON(http.StatusOK, payload)
}

// currentConditionLabel is empty when no coordinate was given or the
// provider fails; the default wallpaper query is used then.
func (s *Server) currentConditionLabel(c *gin.Context) string {
	if s.conditions == nil {
		return ""
	}
	coord, ok := parseCoordinate(c)
	if !ok {
		return ""
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cond, err := s.conditions.Conditions(ctx, coord.Latitude, coord.Longitude)
	if err != nil || cond == nil {
		if err != nil {
			log.Printf("[%s] Wallpaper weather lookup failed: %v", requestIDFrom(c), err)
		}
		return ""
	}
	return conditionLabel(cond)
}

func conditionLabel(cond *weather.Conditions) string {
	return strings.TrimSpace(cond.Condition + " " + cond.Description)
}

func (w *wallpaperSource) unsplash(ctx context.Context, query string) (wallpaperPayload, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = defaultBackgroundQuery
	}
	return w.cached(ctx, "unsplash_"+query, unsplashWallpaperTTL, func(ctx context.Context) (wallpaperPayload, error) {
		return w.fetchUnsplash(ctx, query)
	})
}

func (w *wallpaperSource) fetchUnsplash(ctx context.Context, query string) (_ wallpaperPayload, err error) {
	defer func() { metrics.Upstream("unsplash", err) }()

	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", "landscape")
	endpoint := w.unsplashBase + "/photos/random?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return wallpaperPayload{}, fmt.Errorf("unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+w.unsplashKey)
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return wallpaperPayload{}, fmt.Errorf("unsplash request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wallpaperPayload{}, fmt.Errorf("unsplash bad status: %s", resp.Status)
	}

	var payload unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return wallpaperPayload{}, fmt.Errorf("unsplash decode: %w", err)
	}

	imageURL := firstNonEmpty(payload.Urls.Regular, payload.Urls.Full)
	if imageURL == "" {
		return wallpaperPayload{}, fmt.Errorf("unsplash image URL is missing")
	}

	var credit string
	if author := strings.TrimSpace(payload.User.Name); author != "" {
		credit = "Photo by " + author + " on Unsplash"
	}

	return wallpaperPayload{
		Provider: "unsplash",
		URL:      imageURL,
		Title:    firstNonEmpty(payload.Description, payload.AltDescription),
		Credit:   credit,
		Query:    query,
	}, nil
}

type backgroundRule struct {
	all    []string
	any    []string
	choice backgroundChoice
}

// Rules are checked in order; the first match wins.
var backgroundRules = []backgroundRule{
	{any: []string{"thunder"}, choice: backgroundChoice{"thunderstorm sky", 6}},
	{all: []string{"heavy", "rain"}, choice: backgroundChoice{"heavy rain clouds", 5}},
	{any: []string{"rain", "drizzle"}, choice: backgroundChoice{"rainy sky", 4}},
	{any: []string{"snow"}, choice: backgroundChoice{"snowy landscape", 5}},
	{any: []string{"fog", "mist", "haze"}, choice: backgroundChoice{"foggy landscape", 7}},
	{any: []string{"overcast"}, choice: backgroundChoice{"overcast sky", 3}},
	{any: []string{"cloud", "partly"}, choice: backgroundChoice{"partly cloudy sky", 2}},
	{any: []string{"clear"}, choice: backgroundChoice{"clear sky", 1}},
}

func (r backgroundRule) matches(label string) bool {
	for _, word := range r.all {
		if !strings.Contains(label, word) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	for _, word := range r.any {
		if strings.Contains(label, word) {
			return true
		}
	}
	return false
}

// pickBackgroundChoice maps a weather label to an Unsplash query and a Bing
// archive index (0 is today, up to 7 days back).
func pickBackgroundChoice(label string) backgroundChoice {
	label = strings.ToLower(strings.TrimSpace(label))
	if label != "" {
		for _, rule := range backgroundRules {
			if rule.matches(label) {
				return rule.choice
			}
		}
	}
	return backgroundChoice{UnsplashQuery: defaultBackgroundQuery}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
