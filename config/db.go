package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"bungalow-backend/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// normalizeMySQLConfig forces the options the calendar logic depends on:
// DATE columns are scanned into time.Time and interpreted in UTC, so a stored
// day never shifts when the server runs in another timezone.
func normalizeMySQLConfig(c *mysqldriver.Config) {
	c.ParseTime = true
	c.Loc = time.UTC
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	if _, ok := c.Params["charset"]; !ok {
		c.Params["charset"] = "utf8mb4"
	}
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	c := mysqldriver.NewConfig()
	c.User = u.User.Username()
	c.Passwd, _ = u.User.Password()
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(u.Hostname(), port)
	c.DBName = dbName
	c.Params = map[string]string{}
	for key, values := range u.Query() {
		if len(values) > 0 && key != "parseTime" && key != "loc" {
			c.Params[key] = values[0]
		}
	}
	normalizeMySQLConfig(c)
	return c.FormatDSN(), nil
}

// ResolveMySQLDSN turns the database section into a go-sql-driver DSN.
func ResolveMySQLDSN(cfg DatabaseConfig) (string, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		c, err := mysqldriver.ParseDSN(raw)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		normalizeMySQLConfig(c)
		return c.FormatDSN(), nil
	}

	c := mysqldriver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Name
	normalizeMySQLConfig(c)
	return c.FormatDSN(), nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func ConnectDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	dsn, err := ResolveMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormLogLevel(cfg.LogLevel),
			Colorful:      true,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	} else {
		log.Printf("info: cannot get raw sql.DB: %v", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if cfg.Seed {
		SeedDatabase(db)
	}

	DB = db
	return db, nil
}

// Migrate creates or updates every table, parents first.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Admin{},
		&models.Room{},
		&models.SeasonalRate{},
		&models.Reservation{},
		&models.ReservationEvent{},
	)
}

// SeedDatabase inserts a default staff account and a few bungalows on an
// empty database. Failures are logged, never fatal.
func SeedDatabase(db *gorm.DB) {
	var adminCount int64
	db.Model(&models.Admin{}).Count(&adminCount)
	if adminCount == 0 {
		password := envOrDefault("ADMIN_PASSWORD", "admin123")
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("warning: failed to hash default admin password: %v", err)
		} else {
			admin := models.Admin{
				FullName: "Admin User",
				Username: envOrDefault("ADMIN_USERNAME", "admin@bungalow.local"),
				Password: string(hash),
				Role:     "admin",
			}
			if err := db.Create(&admin).Error; err != nil {
				log.Printf("warning: failed to create default admin: %v", err)
			} else {
				log.Println("Default admin seeded")
			}
		}
	}

	var roomCount int64
	db.Model(&models.Room{}).Count(&roomCount)
	if roomCount == 0 {
		rooms := []models.Room{
			{Name: "Ocean View Suite", Description: "Sea-facing bungalow with terrace", Price: 12000, Capacity: 4, Status: models.RoomAvailable},
			{Name: "Garden Bungalow", Description: "Quiet bungalow in the garden", Price: 8500, Capacity: 3, Status: models.RoomAvailable},
			{Name: "Family Villa", Description: "Two bedrooms, kitchenette", Price: 16000, Capacity: 6, Status: models.RoomAvailable},
		}
		if err := db.Create(&rooms).Error; err != nil {
			log.Printf("warning: failed to seed rooms: %v", err)
		} else {
			log.Println("Rooms seeded")
		}
	}
}
