package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	NATS       NATSConfig       `yaml:"nats"`
	Session    SessionConfig    `yaml:"session"`
	Booking    BookingConfig    `yaml:"booking"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type AppConfig struct {
	Name        string   `yaml:"name"`
	Environment string   `yaml:"environment"`
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	// URL takes precedence over the discrete fields; both "mysql://" URLs and
	// raw go-sql-driver DSNs are accepted.
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
	Seed     bool   `yaml:"seed"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	TTL      time.Duration `yaml:"ttl"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type BookingConfig struct {
	PreventDoubleBooking bool   `yaml:"prevent_double_booking"`
	RateOverlapPolicy    string `yaml:"rate_overlap_policy"`
	MaxCalendarDays      int    `yaml:"max_calendar_days"`
	// TimeZone decides which calendar day "today" is for upcoming/past
	// filters and the completion batch. Stored dates are always UTC.
	TimeZone string `yaml:"time_zone"`
}

// Location resolves TimeZone, defaulting to UTC.
func (b BookingConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(b.TimeZone) == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(b.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", b.TimeZone, err)
	}
	return loc, nil
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
}

func defaults() Config {
	return Config{
		App: AppConfig{
			Name:        "bungalow-backend",
			Environment: "development",
			Port:        "8080",
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     3306,
			User:     "root",
			Name:     "bungalow_db",
			LogLevel: "warn",
			Seed:     true,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			TTL:      5 * time.Minute,
		},
		NATS: NATSConfig{
			SubjectPrefix: "reservations",
		},
		Session: SessionConfig{
			TTL: 12 * time.Hour,
		},
		Booking: BookingConfig{
			PreventDoubleBooking: true,
			RateOverlapPolicy:    "largest_discount",
			MaxCalendarDays:      366,
			TimeZone:             "UTC",
		},
		Monitoring: MonitoringConfig{
			PrometheusEnabled: true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file at path
// (environment variables are expanded inside it) and finally plain
// environment variables, which win over everything else.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env not found or couldn't load it; continuing with environment variables")
	}

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expanded, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			log.Printf("config file %s not found, using defaults and environment", path)
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.App.Port = envOrDefault("PORT", cfg.App.Port)
	cfg.App.Environment = envOrDefault("APP_ENV", cfg.App.Environment)
	if raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); raw != "" {
		cfg.App.CORSOrigins = splitList(raw)
	}

	if raw := strings.TrimSpace(os.Getenv("MYSQL_URL")); raw != "" {
		cfg.Database.URL = raw
	} else if raw := strings.TrimSpace(os.Getenv("DATABASE_URL")); raw != "" {
		cfg.Database.URL = raw
	}
	cfg.Database.Host = envOrDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = envIntOrDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.User = envOrDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = envOrDefault("DB_PASS", cfg.Database.Password)
	cfg.Database.Name = envOrDefault("DB_NAME", cfg.Database.Name)
	cfg.Database.LogLevel = envOrDefault("DB_LOG_LEVEL", cfg.Database.LogLevel)
	cfg.Database.Seed = envBoolOrDefault("DB_SEED", cfg.Database.Seed)

	cfg.Redis.Address = envOrDefault("REDIS_ADDR", cfg.Redis.Address)
	cfg.Redis.Password = envOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envIntOrDefault("REDIS_DB", cfg.Redis.DB)

	cfg.NATS.URL = envOrDefault("NATS_URL", cfg.NATS.URL)

	cfg.Session.Secret = envOrDefault("SESSION_SECRET", cfg.Session.Secret)

	cfg.Booking.PreventDoubleBooking = envBoolOrDefault("PREVENT_DOUBLE_BOOKING", cfg.Booking.PreventDoubleBooking)
	cfg.Booking.RateOverlapPolicy = envOrDefault("RATE_OVERLAP_POLICY", cfg.Booking.RateOverlapPolicy)
	cfg.Booking.TimeZone = envOrDefault("BOOKING_TIME_ZONE", cfg.Booking.TimeZone)

	cfg.Monitoring.PrometheusEnabled = envBoolOrDefault("PROMETHEUS_ENABLED", cfg.Monitoring.PrometheusEnabled)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Session.Secret) == "" {
		return errors.New("session secret is required (SESSION_SECRET or session.secret)")
	}
	switch c.Booking.RateOverlapPolicy {
	case "largest_discount", "smallest_discount", "most_recent":
	default:
		return fmt.Errorf("unknown rate_overlap_policy %q", c.Booking.RateOverlapPolicy)
	}
	if c.Booking.MaxCalendarDays <= 0 {
		return fmt.Errorf("max_calendar_days must be positive, got %d", c.Booking.MaxCalendarDays)
	}
	if _, err := c.Booking.Location(); err != nil {
		return err
	}
	return nil
}

func envOrDefault(key, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func envIntOrDefault(key string, def int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("warning: %s=%q is not an integer, using %d", key, value, def)
	}
	return def
}

func envBoolOrDefault(key string, def bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("warning: %s=%q is not a boolean, using %v", key, value, def)
	}
	return def
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
