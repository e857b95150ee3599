package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"ambient-clock/internal/astronomy"
	"ambient-clock/internal/metrics"
	"ambient-clock/internal/storage"
	"ambient-clock/internal/weather"
)

var ErrNoLocation = errors.New("collector location not configured")

type SnapshotStore interface {
	SaveSnapshot(s *storage.AstronomySnapshot) error
	CleanOldSnapshots(olderThan time.Duration) (int64, error)
}

type Publisher interface {
	Publish(s *storage.AstronomySnapshot) error
}

// Collector takes periodic astronomy snapshots for a fixed home location.
type Collector struct {
	location  astronomy.Coordinate
	db        SnapshotStore
	publisher Publisher
	weather   weather.Provider
	interval  time.Duration
	retention time.Duration
	enabled   bool
	now       func() time.Time

	mu           sync.RWMutex
	scheduler    *gocron.Scheduler
	latest       *storage.AstronomySnapshot
	isCollecting bool
}

// CollectorConfig leaves every collaborator optional.
type CollectorConfig struct {
	Location  astronomy.Coordinate
	Database  SnapshotStore
	Publisher Publisher
	Weather   weather.Provider
	Interval  time.Duration
	Retention time.Duration
	Enabled   bool
	Now       func() time.Time
}

func NewCollector(cfg CollectorConfig) *Collector {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Collector{
		location:  cfg.Location,
		db:        cfg.Database,
		publisher: cfg.Publisher,
		weather:   cfg.Weather,
		interval:  interval,
		retention: cfg.Retention,
		enabled:   cfg.Enabled,
		now:       now,
	}
}

func (c *Collector) hasLocation() bool {
	return c.location.Latitude != 0 && c.location.Longitude != 0 && c.location.Validate() == nil
}

// Start collects once immediately, then every interval until ctx is done.
func (c *Collector) Start(ctx context.Context) error {
	if !c.enabled {
		log.Println("Collector is disabled")
		return nil
	}
	if !c.hasLocation() {
		log.Println("Collector has no home location configured, not starting")
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(c.interval).Do(func() {
		if _, err := c.CollectOnce(ctx); err != nil {
			log.Printf("Collection failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule collector: %w", err)
	}

	c.mu.Lock()
	c.scheduler = s
	c.isCollecting = true
	c.mu.Unlock()

	log.Printf("Starting collector for %.4f,%.4f with interval %s", c.location.Latitude, c.location.Longitude, c.interval)
	s.StartAsync()

	<-ctx.Done()
	c.Stop()
	log.Println("Collector stopped")
	return nil
}

// CollectOnce computes, stores and publishes one snapshot. Storage and
// publishing failures are logged; the snapshot is still returned.
func (c *Collector) CollectOnce(ctx context.Context) (*storage.AstronomySnapshot, error) {
	if !c.hasLocation() {
		return nil, ErrNoLocation
	}

	now := c.now()
	report := astronomy.Calculate(c.location, now, astronomy.Options{SunTimes: true})
	snapshot := storage.NewSnapshot(now, c.location, report, c.conditions(ctx))

	c.mu.Lock()
	c.latest = snapshot
	c.mu.Unlock()
	metrics.SnapshotsCollected.Inc()

	if c.db != nil {
		if err := c.db.SaveSnapshot(snapshot); err != nil {
			log.Printf("Error saving snapshot: %v", err)
		} else if c.retention > 0 {
			if removed, err := c.db.CleanOldSnapshots(c.retention); err != nil {
				log.Printf("Error pruning snapshots: %v", err)
			} else if removed > 0 {
				log.Printf("Pruned %d snapshots older than %s", removed, c.retention)
			}
		}
	}

	if c.publisher != nil {
		if err := c.publisher.Publish(snapshot); err != nil {
			log.Printf("Error publishing to MQTT: %v", err)
		}
	}

	log.Printf("Collected: DayLength=%.2fh, Declination=%.2f°, Moon=%s (%.1f%%)",
		snapshot.DayLengthHours, snapshot.Declination, snapshot.MoonPhaseName, snapshot.MoonIllumination)
	return snapshot, nil
}

func (c *Collector) conditions(ctx context.Context) *weather.Conditions {
	if c.weather == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cond, err := c.weather.Conditions(ctx, c.location.Latitude, c.location.Longitude)
	if err != nil {
		log.Printf("Weather lookup for snapshot failed: %v", err)
		return nil
	}
	return cond
}

func (c *Collector) GetLatest() *storage.AstronomySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

func (c *Collector) IsCollecting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isCollecting
}

func (c *Collector) Stop() {
	c.mu.Lock()
	s := c.scheduler
	c.scheduler = nil
	c.isCollecting = false
	c.mu.Unlock()

	// Stop waits for a running job, which itself takes c.mu.
	if s != nil {
		s.Stop()
	}
}
