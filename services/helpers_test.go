package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bungalow-backend/config"
	"bungalow-backend/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	// Every new connection to :memory: is a fresh database.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ReservationChanged
}

func (p *recordingPublisher) Publish(_ context.Context, e ReservationChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) actions() []models.ReservationAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ReservationAction, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

// memoryCache is an in-process CalendarCache that counts invalidations.
// Slots carry the generation like the Redis cache does.
type memoryCache struct {
	mu            sync.Mutex
	entries       map[string]interface{}
	generation    int
	invalidations int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]interface{}{}}
}

func (c *memoryCache) slot(key string) string {
	return fmt.Sprintf("%d:%s", c.generation, key)
}

// has reports whether key is cached in the current generation.
func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[c.slot(key)]
	return ok
}

func (c *memoryCache) Get(_ context.Context, key string, dst interface{}) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot := c.slot(key)
	v, ok := c.entries[slot]
	if !ok {
		return slot, false
	}
	switch d := dst.(type) {
	case *[]DayOccupancy:
		*d = v.([]DayOccupancy)
	case *[]BungalowCalendar:
		*d = v.([]BungalowCalendar)
	default:
		return slot, false
	}
	return slot, true
}

func (c *memoryCache) Set(_ context.Context, slot string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[slot] = value
}

func (c *memoryCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidations++
}

type fixture struct {
	db           *gorm.DB
	rooms        *RoomService
	rates        *SeasonalRateService
	reservations *ReservationService
	publisher    *recordingPublisher
	cache        *memoryCache
	ocean        models.Room
	garden       models.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{
		db:        db,
		rooms:     NewRoomService(db),
		rates:     NewSeasonalRateService(db, RateLargestDiscount),
		publisher: &recordingPublisher{},
		cache:     newMemoryCache(),
	}
	f.reservations = NewReservationService(db, f.rooms)
	f.reservations.Events = f.publisher
	f.reservations.Cache = f.cache
	f.reservations.Now = func() time.Time { return testNow }

	ocean, err := f.rooms.Create(RoomInput{Name: "Ocean View", Price: 10000, Capacity: 4})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	garden, err := f.rooms.Create(RoomInput{Name: "Garden", Price: 8500, Capacity: 2})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	f.ocean, f.garden = *ocean, *garden
	return f
}

func (f *fixture) book(t *testing.T, room models.Room, email, checkIn, checkOut string) *models.Reservation {
	t.Helper()
	r, err := f.reservations.Create(CreateReservationInput{
		BungalowName:  room.Name,
		CheckInDate:   date(checkIn),
		CheckOutDate:  date(checkOut),
		CustomerID:    7,
		CustomerEmail: email,
		CustomerName:  "Test Guest",
	})
	if err != nil {
		t.Fatalf("create reservation %s..%s: %v", checkIn, checkOut, err)
	}
	return r
}

// forceStatus bypasses the transition engine to set up fixtures.
func (f *fixture) forceStatus(t *testing.T, id uint, status models.ReservationStatus) {
	t.Helper()
	if err := f.db.Model(&models.Reservation{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		t.Fatalf("force status: %v", err)
	}
}
