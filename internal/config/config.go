package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Sources   SourcesConfig
	AI        AIConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	V2V       V2VConfig
	Schedule  ScheduleConfig
	Retention RetentionConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

// Location is a monitored point for the weather feed.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
}

type SourcesConfig struct {
	HTTPTimeout time.Duration

	USGSEnabled      bool
	USGSURL          string
	USGSWindow       time.Duration
	USGSMinMagnitude float64

	TsunamiEnabled      bool
	TsunamiWindow       time.Duration
	TsunamiMinMagnitude float64

	OpenWeatherEnabled   bool
	OpenWeatherURL       string
	OpenWeatherAPIKey    string
	OpenWeatherLocations []Location

	GDACSEnabled bool
	GDACSURL     string
}

type AIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

type AuthConfig struct {
	JWTSecret    string
	JWTPublicKey string // PEM, RS256
	Issuer       string
	Audience     string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type V2VConfig struct {
	DefaultRadiusKm   float64
	MaxRadiusKm       float64
	BroadcastRadiusKm float64
}

// ScheduleConfig holds cron specs for the background jobs.
type ScheduleConfig struct {
	Refresh   string
	Analytics string
	Cleanup   string
	Sweep     string
}

type RetentionConfig struct {
	Disasters time.Duration
	Messages  time.Duration
	Chats     time.Duration
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

const defaultLocations = "Tokyo:35.6762:139.6503;Manila:14.5995:120.9842;Los Angeles:34.0522:-118.2437;Miami:25.7617:-80.1918;Jakarta:-6.2088:106.8456"

func Load() (*Config, error) {
	locations, err := ParseLocations(getEnv("OPENWEATHER_LOCATIONS", defaultLocations))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "localhost"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 100),
		},
		Sources: SourcesConfig{
			HTTPTimeout:          getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
			USGSEnabled:          getEnvBool("USGS_ENABLED", true),
			USGSURL:              getEnv("USGS_URL", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
			USGSWindow:           getEnvDuration("USGS_WINDOW", 24*time.Hour),
			USGSMinMagnitude:     getEnvFloat("USGS_MIN_MAGNITUDE", 2.5),
			TsunamiEnabled:       getEnvBool("TSUNAMI_ENABLED", true),
			TsunamiWindow:        getEnvDuration("TSUNAMI_WINDOW", 7*24*time.Hour),
			TsunamiMinMagnitude:  getEnvFloat("TSUNAMI_MIN_MAGNITUDE", 6.0),
			OpenWeatherEnabled:   getEnvBool("OPENWEATHER_ENABLED", true),
			OpenWeatherURL:       getEnv("OPENWEATHER_URL", "https://api.openweathermap.org/data/2.5/weather"),
			OpenWeatherAPIKey:    getEnv("OPENWEATHER_API_KEY", ""),
			OpenWeatherLocations: locations,
			GDACSEnabled:         getEnvBool("GDACS_ENABLED", true),
			GDACSURL:             getEnv("GDACS_URL", "https://www.gdacs.org/xml/rss.xml"),
		},
		AI: AIConfig{
			APIKey:    getEnv("ANTHROPIC_API_KEY", ""),
			Model:     getEnv("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
			MaxTokens: int64(getEnvInt("ANTHROPIC_MAX_TOKENS", 1024)),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("AUTH_JWT_SECRET", ""),
			JWTPublicKey: getEnv("AUTH_JWT_PUBLIC_KEY", ""),
			Issuer:       getEnv("AUTH_ISSUER", ""),
			Audience:     getEnv("AUTH_AUDIENCE", ""),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
			Burst: getEnvInt("RATE_LIMIT_BURST", 20),
		},
		V2V: V2VConfig{
			DefaultRadiusKm:   getEnvFloat("V2V_DEFAULT_RADIUS_KM", 5),
			MaxRadiusKm:       getEnvFloat("V2V_MAX_RADIUS_KM", 100),
			BroadcastRadiusKm: getEnvFloat("V2V_BROADCAST_RADIUS_KM", 10),
		},
		Schedule: ScheduleConfig{
			Refresh:   getEnv("SCHEDULE_REFRESH", "@every 5m"),
			Analytics: getEnv("SCHEDULE_ANALYTICS", "@every 1h"),
			Cleanup:   getEnv("SCHEDULE_CLEANUP", "0 3 * * *"),
			Sweep:     getEnv("SCHEDULE_SWEEP", "@every 5m"),
		},
		Retention: RetentionConfig{
			Disasters: getEnvDuration("RETENTION_DISASTERS", 30*24*time.Hour),
			Messages:  getEnvDuration("RETENTION_MESSAGES", 7*24*time.Hour),
			Chats:     getEnvDuration("RETENTION_CHATS", 90*24*time.Hour),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/disaster-v2v.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return eris.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return eris.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return eris.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Worker.Count < 1 {
		return eris.New("worker count must be at least 1")
	}

	if c.V2V.DefaultRadiusKm <= 0 || c.V2V.MaxRadiusKm <= 0 || c.V2V.BroadcastRadiusKm <= 0 {
		return eris.New("v2v radii must be positive")
	}
	if c.V2V.BroadcastRadiusKm > c.V2V.MaxRadiusKm || c.V2V.DefaultRadiusKm > c.V2V.MaxRadiusKm {
		return eris.Errorf("v2v radii must not exceed max radius %.1f km", c.V2V.MaxRadiusKm)
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return eris.New("rate limit rps and burst must be positive")
	}

	for name, d := range map[string]time.Duration{
		"disasters": c.Retention.Disasters,
		"messages":  c.Retention.Messages,
		"chats":     c.Retention.Chats,
	} {
		if d < time.Hour {
			return eris.Errorf("%s retention must be at least 1 hour", name)
		}
	}

	for name, spec := range map[string]string{
		"refresh":   c.Schedule.Refresh,
		"analytics": c.Schedule.Analytics,
		"cleanup":   c.Schedule.Cleanup,
		"sweep":     c.Schedule.Sweep,
	} {
		if strings.TrimSpace(spec) == "" {
			return eris.Errorf("%s schedule must not be empty", name)
		}
	}

	return nil
}

// ParseLocations parses "name:lat:lon" entries separated by ';'.
func ParseLocations(raw string) ([]Location, error) {
	var locations []Location
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, eris.Errorf("invalid location %q: want name:lat:lon", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, eris.Errorf("invalid latitude in location %q", entry)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, eris.Errorf("invalid longitude in location %q", entry)
		}
		locations = append(locations, Location{
			Name:      strings.TrimSpace(parts[0]),
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return locations, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
