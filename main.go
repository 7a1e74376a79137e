package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"bungalow-backend/config"
	"bungalow-backend/controllers"
	"bungalow-backend/metrics"
	"bungalow-backend/middleware"
	"bungalow-backend/routes"
	"bungalow-backend/services"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	db, err := config.ConnectDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Database connect failed: %v", err)
	}
	log.Println("✅ Database connection established and migrations applied.")

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	var cache services.CalendarCache = services.NoopCalendarCache{}
	if cfg.Redis.Address != "" {
		client := services.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️  Redis unavailable at %s, calendar cache disabled: %v", cfg.Redis.Address, err)
			client.Close()
		} else {
			cache = services.NewRedisCalendarCache(client, cfg.Redis.TTL)
			defer client.Close()
			log.Println("✅ Redis calendar cache enabled.")
		}
		cancel()
	}

	var publisher services.EventPublisher = services.NoopPublisher{}
	if cfg.NATS.URL != "" {
		p, err := services.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			log.Printf("⚠️  %v; reservation events disabled", err)
		} else {
			publisher = p
			log.Println("✅ NATS reservation events enabled.")
		}
	}
	defer publisher.Close()

	policy, err := services.ParseRatePolicy(cfg.Booking.RateOverlapPolicy)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	location, err := cfg.Booking.Location()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Initialize services
	roomService := services.NewRoomService(db)
	rateService := services.NewSeasonalRateService(db, policy)
	adminService := services.NewAdminService(db)
	reservationService := services.NewReservationService(db, roomService)
	reservationService.Events = publisher
	reservationService.Cache = cache
	reservationService.PreventDoubleBooking = cfg.Booking.PreventDoubleBooking
	reservationService.Location = location
	availabilityService := services.NewAvailabilityService(reservationService, roomService, cache, cfg.Booking.MaxCalendarDays)

	sessions := middleware.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL)

	// Initialize controllers
	handlers := routes.Handlers{
		Auth:         controllers.NewAuthController(adminService, sessions),
		Reservations: controllers.NewReservationController(reservationService),
		Calendar:     controllers.NewCalendarController(availabilityService),
		Rooms:        controllers.NewRoomController(roomService, rateService),
		Rates:        controllers.NewSeasonalRateController(rateService),
	}

	router := routes.SetupRouter(handlers, sessions, routes.Options{
		CORSOrigins:    cfg.App.CORSOrigins,
		MetricsEnabled: cfg.Monitoring.PrometheusEnabled,
	})

	addr := ":" + cfg.App.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("⚠️  Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
		return
	}

	log.Println("✅ Server stopped gracefully")
}
