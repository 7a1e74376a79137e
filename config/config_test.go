package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  port: "9000"
database:
  host: db.internal
  name: ${TEST_DB_NAME}
session:
  secret: from-yaml
  ttl: 30m
booking:
  rate_overlap_policy: smallest_discount
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_DB_NAME", "resort")
	t.Setenv("PORT", "9100")
	t.Setenv("PREVENT_DOUBLE_BOOKING", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Port != "9100" {
		t.Errorf("App.Port = %q, want env override 9100", cfg.App.Port)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Name != "resort" {
		t.Errorf("Database = %+v, want host db.internal and expanded name resort", cfg.Database)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Errorf("Session.TTL = %v, want 30m", cfg.Session.TTL)
	}
	if cfg.Booking.RateOverlapPolicy != "smallest_discount" {
		t.Errorf("RateOverlapPolicy = %q", cfg.Booking.RateOverlapPolicy)
	}
	if cfg.Booking.PreventDoubleBooking {
		t.Error("PreventDoubleBooking = true, want env override false")
	}
	if cfg.Booking.MaxCalendarDays != 366 {
		t.Errorf("MaxCalendarDays = %d, want default 366", cfg.Booking.MaxCalendarDays)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Port != "8080" || cfg.Booking.RateOverlapPolicy != "largest_discount" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missingSecret", mutate: func(c *Config) { c.Session.Secret = "" }, wantErr: true},
		{name: "unknownPolicy", mutate: func(c *Config) { c.Booking.RateOverlapPolicy = "first" }, wantErr: true},
		{name: "zeroCalendarDays", mutate: func(c *Config) { c.Booking.MaxCalendarDays = 0 }, wantErr: true},
		{name: "unknownTimeZone", mutate: func(c *Config) { c.Booking.TimeZone = "Mars/Olympus" }, wantErr: true},
		{name: "emptyTimeZone", mutate: func(c *Config) { c.Booking.TimeZone = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.Session.Secret = "secret"
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveMySQLDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      DatabaseConfig
		contains []string
		wantErr  bool
	}{
		{
			name:     "discreteFields",
			cfg:      DatabaseConfig{Host: "127.0.0.1", Port: 3306, User: "root", Password: "pw", Name: "bungalow_db"},
			contains: []string{"root:pw@tcp(127.0.0.1:3306)/bungalow_db", "parseTime=true", "charset=utf8mb4"},
		},
		{
			name:     "mysqlURL",
			cfg:      DatabaseConfig{URL: "mysql://app:secret@db:3307/resort?timeout=5s"},
			contains: []string{"app:secret@tcp(db:3307)/resort", "parseTime=true", "timeout=5s"},
		},
		{
			name:     "rawDSNGetsParseTime",
			cfg:      DatabaseConfig{URL: "app:secret@tcp(db:3306)/resort"},
			contains: []string{"app:secret@tcp(db:3306)/resort", "parseTime=true"},
		},
		{
			name:    "urlWithoutDatabase",
			cfg:     DatabaseConfig{URL: "mysql://app:secret@db:3306/"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := ResolveMySQLDSN(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveMySQLDSN() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.contains {
				if !strings.Contains(dsn, want) {
					t.Errorf("dsn %q does not contain %q", dsn, want)
				}
			}
		})
	}
}
