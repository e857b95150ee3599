package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"ambient-clock/config"
	"ambient-clock/internal/api"
	"ambient-clock/internal/assistant"
	"ambient-clock/internal/astronomy"
	"ambient-clock/internal/cache"
	"ambient-clock/internal/collector"
	"ambient-clock/internal/mqtt"
	"ambient-clock/internal/storage"
	"ambient-clock/internal/weather"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ambient-clock",
		Short: "Ambient clock backend",
		Long:  "Weather proxy, AI assistant and astronomy service for the ambient clock display",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(astronomyCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// caches hands out named caches on one shared backend.
type caches struct {
	cfg    config.CacheConfig
	client *redis.Client
}

func newCaches(ctx context.Context, cfg config.CacheConfig) (*caches, error) {
	c := &caches{cfg: cfg}
	if !strings.EqualFold(cfg.Backend, "redis") {
		return c, nil
	}

	c.client = cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx, c.client); err != nil {
		_ = c.client.Close()
		return nil, err
	}
	log.Printf("Redis cache connected at %s", cfg.RedisAddr)
	return c, nil
}

func (c *caches) named(name string) cache.Cache {
	if c.client != nil {
		return cache.NewRedis(c.client, c.cfg.RedisPrefix, name)
	}
	return cache.NewMemory(name, c.cfg.MaxEntries)
}

func (c *caches) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

func newWeatherService(cfg *config.Config, c cache.Cache) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Client:   weather.NewOpenWeatherClient(cfg.Weather.APIKey, cfg.Weather.Timeout),
		Cache:    c,
		Demo:     weather.NewDemoGenerator(time.Now().UnixNano(), nil),
		DemoMode: cfg.Weather.DemoMode,
	})
}

// conditionsProvider picks the source for wallpaper and snapshot conditions.
func conditionsProvider(cfg *config.Config, svc *weather.Service) weather.Provider {
	if strings.EqualFold(cfg.Weather.Provider, "openmeteo") {
		return weather.NewOpenMeteoClient(cfg.Weather.Timeout)
	}
	return svc
}

// newGenerator returns nil without a Gemini key; the AI routes answer 503 then.
func newGenerator(ctx context.Context, cfg *config.Config) assistant.Generator {
	if !cfg.HasGeminiKey() {
		return nil
	}
	gen, err := assistant.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Printf("Warning: Gemini client unavailable: %v", err)
		return nil
	}
	return gen
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ambient clock service",
		Long:  "Start the API server, the snapshot collector and the MQTT publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			backend, err := newCaches(ctx, cfg.Cache)
			if err != nil {
				return fmt.Errorf("failed to connect cache: %w", err)
			}
			defer backend.Close()

			weatherSvc := newWeatherService(cfg, backend.named("weather"))
			if !cfg.HasWeatherKey() {
				log.Printf("OpenWeather key not set (demo mode: %v)", cfg.Weather.DemoMode)
			}
			conditions := conditionsProvider(cfg, weatherSvc)

			ai := assistant.NewService(newGenerator(ctx, cfg), backend.named("assistant"))

			db, err := storage.NewDatabase(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
			log.Printf("Database opened at %s", cfg.Database.Path)

			var publisher collector.Publisher
			pub, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
			})
			if err != nil {
				log.Printf("Warning: MQTT connection failed: %v", err)
			} else {
				publisher = pub
				defer pub.Close()
				if cfg.MQTT.Enabled {
					log.Printf("MQTT connected to %s", cfg.MQTT.Broker)
					if err := pub.PublishHomeAssistantDiscovery(); err != nil {
						log.Printf("Warning: Home Assistant discovery failed: %v", err)
					}
				}
			}

			coll := collector.NewCollector(collector.CollectorConfig{
				Location: astronomy.Coordinate{
					Latitude:  cfg.Snapshot.Latitude,
					Longitude: cfg.Snapshot.Longitude,
				},
				Database:  db,
				Publisher: publisher,
				Weather:   conditions,
				Interval:  cfg.Snapshot.Interval,
				Retention: cfg.Snapshot.Retention,
				Enabled:   cfg.Snapshot.Enabled,
			})

			go func() {
				if err := coll.Start(ctx); err != nil {
					log.Printf("Collector error: %v", err)
				}
			}()

			limits := cfg.API.RateLimits
			server := api.NewServer(api.ServerConfig{
				Port:        cfg.API.Port,
				CORSOrigins: cfg.API.CORSOrigins,
				RateLimits: api.RateLimits{
					Current:   limits.Current,
					Forecast:  limits.Forecast,
					OneCall:   limits.OneCall,
					Air:       limits.Air,
					Geocode:   limits.Geocode,
					Summary:   limits.Summary,
					Chat:      limits.Chat,
					Briefing:  limits.Briefing,
					Astronomy: limits.Astronomy,
					Wallpaper: limits.Wallpaper,
				},
				Weather:    weatherSvc,
				Assistant:  ai,
				Database:   db,
				Collector:  coll,
				Conditions: conditions,
				Cache:      backend.named("wallpaper"),
				Unsplash:   cfg.Background.UnsplashAccessKey,
				BingMarket: cfg.Background.BingMarket,
			})

			serverErr := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			log.Println("Ambient Clock started. Press Ctrl+C to stop.")

			select {
			case <-ctx.Done():
			case err := <-serverErr:
				log.Printf("API server error: %v", err)
			}
			log.Println("Shutting down...")
			cancel()
			coll.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := server.Stop(shutdownCtx); err != nil {
				log.Printf("API server shutdown: %v", err)
			}
			return nil
		},
	}
}

func astronomyCmd() *cobra.Command {
	var (
		lat, lon  float64
		at        string
		withTimes bool
	)
	cmd := &cobra.Command{
		Use:   "astronomy",
		Short: "Print sun and moon estimates for a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord := astronomy.Coordinate{Latitude: lat, Longitude: lon}
			if err := coord.Validate(); err != nil {
				return err
			}

			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = parsed
			}

			report := astronomy.Calculate(coord, now, astronomy.Options{SunTimes: withTimes})
			output, _ := json.MarshalIndent(report, "", "  ")
			fmt.Println(string(output))
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in degrees")
	cmd.Flags().StringVar(&at, "at", "", "instant to evaluate (RFC3339), defaults to now")
	cmd.Flags().BoolVar(&withTimes, "times", false, "include sunrise and sunset")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the configured upstream services",
		Long:  "Probe OpenWeather and Gemini with the configured keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			failed := false

			fmt.Printf("OpenWeather: ")
			if !cfg.HasWeatherKey() {
				fmt.Println("not configured")
			} else {
				client := weather.NewOpenWeatherClient(cfg.Weather.APIKey, cfg.Weather.Timeout)
				cur, err := client.Current(ctx, weather.Query{Lat: cfg.Snapshot.Latitude, Lon: cfg.Snapshot.Longitude, Units: cfg.Weather.Units})
				if err != nil {
					fmt.Printf("FAILED: %v\n", err)
					failed = true
				} else {
					fmt.Printf("OK (%.1f, %s)\n", cur.Main.Temp, cur.Name)
				}
			}

			fmt.Printf("Gemini:      ")
			if !cfg.HasGeminiKey() {
				fmt.Println("not configured")
			} else {
				gen, err := assistant.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
				if err == nil {
					_, err = gen.Generate(ctx, "Reply with the single word OK.")
				}
				if err != nil {
					fmt.Printf("FAILED: %v\n", err)
					failed = true
				} else {
					fmt.Printf("OK (%s)\n", gen.Model())
				}
			}

			if failed {
				return errors.New("one or more services failed")
			}
			return nil
		},
	}
}
