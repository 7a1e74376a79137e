// Command completer marks CONFIRMED reservations whose stay has ended as
// COMPLETED. It is meant to run once a day from cron or a scheduler.
package main

import (
	"context"
	"flag"
	"log"
	"time"
	_ "time/tzdata"

	"bungalow-backend/config"
	"bungalow-backend/services"
	"bungalow-backend/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum run time")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	// Seeding belongs to the server.
	cfg.Database.Seed = false
	db, err := config.ConnectDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Database connect failed: %v", err)
	}

	var publisher services.EventPublisher = services.NoopPublisher{}
	if cfg.NATS.URL != "" {
		if p, err := services.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix); err == nil {
			publisher = p
		} else {
			log.Printf("⚠️  %v; completion events disabled", err)
		}
	}
	defer publisher.Close()

	reservations := services.NewReservationService(db, services.NewRoomService(db))
	reservations.Events = publisher
	location, err := cfg.Booking.Location()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	reservations.Location = location
	if cfg.Redis.Address != "" {
		client := services.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
		defer client.Close()
		reservations.Cache = services.NewRedisCalendarCache(client, cfg.Redis.TTL)
	}

	today := reservations.Today()
	err = utils.RunWithTimeout(context.Background(), *timeout, func(ctx context.Context) error {
		n, err := reservations.CompleteElapsed(ctx, today)
		log.Printf("Completed %d reservations with check-out before %s", n, utils.FormatDate(today))
		return err
	})
	if err != nil {
		log.Fatalf("❌ Completion run failed: %v", err)
	}
	log.Println("✅ Completion run finished")
}
