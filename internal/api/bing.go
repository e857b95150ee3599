package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ambient-clock/internal/cache"
	"ambient-clock/internal/metrics"
)

const (
	bingWallpaperTTL = 6 * time.Hour
	bingBaseURL      = "https://www.bing.com"
	userAgent        = "AmbientClock/1.0"

	// Entries are kept past their TTL and served when a refresh fails.
	staleRetention = 48 * time.Hour
)

var bingMarketPattern = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)

type bingWallpaperResponse struct {
	Images []bingWallpaperImage `json:"images"`
}

type bingWallpaperImage struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Copyright string `json:"copyright"`
}

type wallpaperPayload struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Credit   string `json:"credit,omitempty"`
	Query    string `json:"query,omitempty"`
	Market   string `json:"mkt,omitempty"`
}

type wallpaperCacheEntry struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Payload   wallpaperPayload `json:"payload"`
}

// wallpaperSource fetches background images from Unsplash when a key is set
// and from Bing's image of the day otherwise.
type wallpaperSource struct {
	cache         cache.Cache
	unsplashKey   string
	defaultMarket string
	bingBase      string
	unsplashBase  string
	client        *http.Client
	now           func() time.Time
}

func newWallpaperSource(c cache.Cache, unsplashKey, market string) *wallpaperSource {
	defaultMarket := "en-US"
	if bingMarketPattern.MatchString(market) {
		defaultMarket = market
	}
	return &wallpaperSource{
		cache:         c,
		unsplashKey:   strings.TrimSpace(unsplashKey),
		defaultMarket: defaultMarket,
		bingBase:      bingBaseURL,
		unsplashBase:  unsplashBaseURL,
		client:        &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
	}
}

func (w *wallpaperSource) sanitizeMarket(value string) string {
	trimmed := strings.TrimSpace(value)
	if bingMarketPattern.MatchString(trimmed) {
		return trimmed
	}
	return w.defaultMarket
}

// cached serves the stored payload while it is younger than ttl and refreshes
// it otherwise. A failed refresh falls back to the stale payload.
func (w *wallpaperSource) cached(ctx context.Context, key string, ttl time.Duration, refresh func(context.Context) (wallpaperPayload, error)) (wallpaperPayload, error) {
	now := w.now()

	var entry wallpaperCacheEntry
	ok, err := cache.GetJSON(ctx, w.cache, key, &entry)
	if err != nil {
		ok = false
	}
	if ok && now.Sub(entry.FetchedAt) < ttl {
		return entry.Payload, nil
	}

	payload, err := refresh(ctx)
	if err != nil {
		if ok {
			return entry.Payload, nil
		}
		return wallpaperPayload{}, err
	}

	_ = cache.SetJSON(ctx, w.cache, key, wallpaperCacheEntry{FetchedAt: now, Payload: payload}, staleRetention)
	return payload, nil
}

func (w *wallpaperSource) bing(ctx context.Context, market string, index int) (wallpaperPayload, error) {
	key := fmt.Sprintf("bing_%s_%d", market, index)
	return w.cached(ctx, key, bingWallpaperTTL, func(ctx context.Context) (wallpaperPayload, error) {
		return w.fetchBing(ctx, market, index)
	})
}

func (w *wallpaperSource) fetchBing(ctx context.Context, market string, index int) (_ wallpaperPayload, err error) {
	defer func() { metrics.Upstream("bing", err) }()

	params := url.Values{}
	params.Set("format", "js")
	params.Set("idx", strconv.Itoa(index))
	params.Set("n", "1")
	params.Set("mkt", market)
	endpoint := w.bingBase + "/HPImageArchive.aspx?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return wallpaperPayload{}, fmt.Errorf("bing request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return wallpaperPayload{}, fmt.Errorf("bing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wallpaperPayload{}, fmt.Errorf("bing bad status: %s", resp.Status)
	}

	var payload bingWallpaperResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return wallpaperPayload{}, fmt.Errorf("bing decode: %w", err)
	}
	if len(payload.Images) == 0 || strings.TrimSpace(payload.Images[0].URL) == "" {
		return wallpaperPayload{}, fmt.Errorf("bing image URL is missing")
	}

	image := payload.Images[0]
	imageURL := strings.TrimSpace(image.URL)
	if !strings.HasPrefix(imageURL, "http") {
		imageURL = bingBaseURL + imageURL
	}

	return wallpaperPayload{
		Provider: "bing",
		Market:   market,
		URL:      imageURL,
		Title:    strings.TrimSpace(image.Title),
		Credit:   strings.TrimSpace(image.Copyright),
	}, nil
}
