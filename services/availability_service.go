package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bungalow-backend/metrics"
	"bungalow-backend/models"
	"bungalow-backend/utils"
)

// CalendarEntry is the slice of a reservation the calendar renders.
type CalendarEntry struct {
	ID            uint                     `json:"id"`
	ReferenceCode string                   `json:"referenceCode"`
	BungalowID    uint                     `json:"bungalowId"`
	BungalowName  string                   `json:"bungalowName"`
	CustomerName  string                   `json:"customerName"`
	CustomerEmail string                   `json:"customerEmail"`
	CheckInDate   string                   `json:"checkInDate"`
	CheckOutDate  string                   `json:"checkOutDate"`
	Status        models.ReservationStatus `json:"status"`
	PaymentStatus models.PaymentStatus     `json:"paymentStatus"`
}

func newCalendarEntry(r models.Reservation) CalendarEntry {
	return CalendarEntry{
		ID:            r.ID,
		ReferenceCode: r.ReferenceCode,
		BungalowID:    r.BungalowID,
		BungalowName:  r.BungalowName,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CheckInDate:   utils.FormatDate(r.CheckIn()),
		CheckOutDate:  utils.FormatDate(r.CheckOut()),
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
	}
}

// DayOccupancy lists the reservations occupying one date. Status is empty
// for a free day.
type DayOccupancy struct {
	Date         string                   `json:"date"`
	Status       models.ReservationStatus `json:"status,omitempty"`
	Count        int                      `json:"count"`
	Reservations []CalendarEntry          `json:"reservations"`
}

type BungalowCalendar struct {
	BungalowID   uint           `json:"bungalowId"`
	BungalowName string         `json:"bungalowName"`
	Days         []DayOccupancy `json:"days"`
}

var summaryPriority = []models.ReservationStatus{
	models.ReservationConfirmed,
	models.ReservationCancelled,
	models.ReservationPending,
}

// SummaryStatus collapses the statuses found on one date: a single distinct
// status is kept as is, otherwise CONFIRMED beats CANCELLED beats PENDING.
func SummaryStatus(statuses []models.ReservationStatus) models.ReservationStatus {
	if len(statuses) == 0 {
		return ""
	}
	seen := make(map[models.ReservationStatus]bool, len(statuses))
	for _, st := range statuses {
		seen[st] = true
	}
	if len(seen) == 1 {
		return statuses[0]
	}
	for _, st := range summaryPriority {
		if seen[st] {
			return st
		}
	}
	return models.ReservationPending
}

// Aggregate builds one DayOccupancy per date of [start, end]. A reservation
// occupies every date from check-in through check-out inclusive.
func Aggregate(reservations []models.Reservation, start, end time.Time) []DayOccupancy {
	days := utils.DaysInRange(start, end)
	out := make([]DayOccupancy, 0, len(days))
	for _, day := range days {
		occ := DayOccupancy{Date: utils.FormatDate(day), Reservations: []CalendarEntry{}}
		statuses := make([]models.ReservationStatus, 0)
		for _, r := range reservations {
			if r.Occupies(day) {
				occ.Reservations = append(occ.Reservations, newCalendarEntry(r))
				statuses = append(statuses, r.Status)
			}
		}
		occ.Count = len(occ.Reservations)
		occ.Status = SummaryStatus(statuses)
		out = append(out, occ)
	}
	return out
}

type AvailabilityService struct {
	Reservations *ReservationService
	Rooms        *RoomService
	Cache        CalendarCache
	MaxDays      int
}

func NewAvailabilityService(reservations *ReservationService, rooms *RoomService, cache CalendarCache, maxDays int) *AvailabilityService {
	if cache == nil {
		cache = NoopCalendarCache{}
	}
	if maxDays <= 0 {
		maxDays = 366
	}
	return &AvailabilityService{Reservations: reservations, Rooms: rooms, Cache: cache, MaxDays: maxDays}
}

func (s *AvailabilityService) checkRange(start, end time.Time) (time.Time, time.Time, error) {
	start, end = utils.DateOf(start), utils.DateOf(end)
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: end must not be before start", ErrValidation)
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > s.MaxDays {
		return start, end, fmt.Errorf("%w: range of %d days exceeds the %d day limit", ErrValidation, days, s.MaxDays)
	}
	return start, end, nil
}

// Range aggregates occupancy across all bungalows, or one when bungalowID
// is set.
func (s *AvailabilityService) Range(ctx context.Context, start, end time.Time, bungalowID uint) ([]DayOccupancy, error) {
	start, end, err := s.checkRange(start, end)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("range:%s:%s:%d", utils.FormatDate(start), utils.FormatDate(end), bungalowID)
	var cached []DayOccupancy
	slot, hit := s.Cache.Get(ctx, key, &cached)
	if hit {
		metrics.IncCalendarRequest("hit")
		return cached, nil
	}
	metrics.IncCalendarRequest("miss")

	reservations, err := s.Reservations.ListInRange(start, end, bungalowID)
	if err != nil {
		return nil, err
	}
	days := Aggregate(reservations, start, end)
	s.Cache.Set(ctx, slot, days)
	return days, nil
}

func (s *AvailabilityService) Month(ctx context.Context, month string, bungalowID uint) ([]DayOccupancy, error) {
	first, last, err := utils.ParseMonth(month)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.Range(ctx, first, last, bungalowID)
}

// Grid returns one calendar row per bungalow. Reservations of rooms that no
// longer exist in the catalog still get a row.
func (s *AvailabilityService) Grid(ctx context.Context, start, end time.Time) ([]BungalowCalendar, error) {
	start, end, err := s.checkRange(start, end)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("grid:%s:%s", utils.FormatDate(start), utils.FormatDate(end))
	var cached []BungalowCalendar
	slot, hit := s.Cache.Get(ctx, key, &cached)
	if hit {
		metrics.IncCalendarRequest("hit")
		return cached, nil
	}
	metrics.IncCalendarRequest("miss")

	rooms, err := s.Rooms.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	reservations, err := s.Reservations.ListInRange(start, end, 0)
	if err != nil {
		return nil, err
	}

	byBungalow := make(map[uint][]models.Reservation)
	names := make(map[uint]string)
	for _, r := range reservations {
		byBungalow[r.BungalowID] = append(byBungalow[r.BungalowID], r)
		names[r.BungalowID] = r.BungalowName
	}

	rows := make([]BungalowCalendar, 0, len(rooms))
	for _, room := range rooms {
		rows = append(rows, BungalowCalendar{
			BungalowID:   room.ID,
			BungalowName: room.Name,
			Days:         Aggregate(byBungalow[room.ID], start, end),
		})
		delete(byBungalow, room.ID)
	}

	orphans := make([]uint, 0, len(byBungalow))
	for id := range byBungalow {
		orphans = append(orphans, id)
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	for _, id := range orphans {
		rows = append(rows, BungalowCalendar{
			BungalowID:   id,
			BungalowName: names[id],
			Days:         Aggregate(byBungalow[id], start, end),
		})
	}

	s.Cache.Set(ctx, slot, rows)
	return rows, nil
}
