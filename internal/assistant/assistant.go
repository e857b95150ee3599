// Package assistant turns dashboard weather data into short natural-language
// summaries, chat answers and daily briefings using a text generator.
package assistant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ambient-clock/internal/cache"
)

const SummaryTTL = time.Hour

var (
	ErrNotConfigured  = errors.New("gemini api not configured")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUpstream       = errors.New("text generation failed")
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	gen   Generator
	cache cache.Cache
}

// NewService accepts a nil generator; every call then fails with
// ErrNotConfigured.
func NewService(gen Generator, c cache.Cache) *Service {
	if c == nil {
		c = cache.NewMemory("assistant", 50)
	}
	return &Service{gen: gen, cache: c}
}

func (s *Service) Configured() bool { return s != nil && s.gen != nil }

func (s *Service) WeatherSummary(ctx context.Context, req SummaryRequest) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	current := pickSnapshot(req.Weather, req.Current)
	if current == nil {
		return "", fmt.Errorf("%w: weather data required", ErrInvalidRequest)
	}

	style := normalizeStyle(req.Style)
	key, err := summaryKey(current, style)
	if err != nil {
		return "", err
	}

	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("Summary cache read failed: %v", err)
	} else if ok {
		return string(cached), nil
	}

	summary, err := s.generate(ctx, summaryPrompt(style, req.Location, current, req.Hourly, req.Daily))
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, []byte(summary), SummaryTTL); err != nil {
		log.Printf("Summary cache write failed: %v", err)
	}
	return summary, nil
}

func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(req.Message) == "" {
		return "", fmt.Errorf("%w: message required", ErrInvalidRequest)
	}
	return s.generate(ctx, chatPrompt(req))
}

func (s *Service) DailyBriefing(ctx context.Context, req BriefingRequest) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if req.Weather == nil {
		return "", fmt.Errorf("%w: weather data required", ErrInvalidRequest)
	}
	return s.generate(ctx, briefingPrompt(req.Weather, req.Forecast, req.Timezone))
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return out, nil
}

// summaryKey depends only on the current snapshot and the style.
func summaryKey(current *Snapshot, style string) (string, error) {
	raw, err := json.Marshal(current)
	if err != nil {
		return "", fmt.Errorf("encode summary key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return "summary_" + hex.EncodeToString(sum[:])[:16] + "_" + style, nil
}
