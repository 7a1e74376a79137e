package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationCompleted ReservationStatus = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// ReservationAction names a staff (or lifecycle) operation on a reservation.
type ReservationAction string

const (
	ActionCreate     ReservationAction = "create"
	ActionApprove    ReservationAction = "approve"
	ActionCancel     ReservationAction = "cancel"
	ActionComplete   ReservationAction = "complete"
	ActionMarkPaid   ReservationAction = "mark-paid"
	ActionMarkUnpaid ReservationAction = "mark-unpaid"
)

// statusTransitions is the reservation state machine. Statuses without an
// entry (CANCELLED, COMPLETED) are terminal.
var statusTransitions = map[ReservationStatus]map[ReservationAction]ReservationStatus{
	ReservationPending: {
		ActionApprove: ReservationConfirmed,
		ActionCancel:  ReservationCancelled,
	},
	ReservationConfirmed: {
		ActionCancel:   ReservationCancelled,
		ActionComplete: ReservationCompleted,
	},
}

// NextStatus returns the status reached by applying action to s, or false
// when the state machine has no such edge.
func (s ReservationStatus) NextStatus(action ReservationAction) (ReservationStatus, bool) {
	next, ok := statusTransitions[s][action]
	return next, ok
}

func (s ReservationStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCancelled, ReservationCompleted:
		return true
	}
	return false
}

// ParseReservationStatus accepts any letter case ("confirmed", "CONFIRMED").
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	s := ReservationStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("invalid reservation status: %q", raw)
	}
	return s, nil
}

type Reservation struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ReferenceCode string            `gorm:"column:reference_code;size:64;uniqueIndex" json:"referenceCode"`
	BungalowID    uint              `gorm:"column:bungalow_id;index" json:"bungalowId"`
	BungalowName  string            `gorm:"column:bungalow_name;size:255" json:"bungalowName"`
	CustomerID    uint              `gorm:"column:customer_id;index" json:"customerId"`
	CustomerEmail string            `gorm:"column:customer_email;size:255;index" json:"customerEmail"`
	CustomerName  string            `gorm:"column:customer_name;size:255" json:"customerName"`
	CheckInDate   datatypes.Date    `gorm:"column:check_in_date;index" json:"checkInDate"`
	CheckOutDate  datatypes.Date    `gorm:"column:check_out_date;index" json:"checkOutDate"`
	Status        ReservationStatus `gorm:"column:status;size:32;index" json:"status"`
	PaymentStatus PaymentStatus     `gorm:"column:payment_status;size:32" json:"paymentStatus"`

	// Version is bumped on every applied mutation and doubles as the
	// optimistic concurrency token exposed through ETag / If-Match.
	Version uint `gorm:"column:version;not null;default:1" json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CheckIn returns the check-in calendar date as UTC midnight.
func (r Reservation) CheckIn() time.Time {
	return calendarDay(time.Time(r.CheckInDate))
}

// CheckOut returns the check-out calendar date as UTC midnight.
func (r Reservation) CheckOut() time.Time {
	return calendarDay(time.Time(r.CheckOutDate))
}

// Occupies reports whether the reservation covers day, inclusive of both
// the check-in and the check-out date.
func (r Reservation) Occupies(day time.Time) bool {
	d := calendarDay(day)
	return !d.Before(r.CheckIn()) && !d.After(r.CheckOut())
}

// Nights is the number of nights between check-in and check-out.
func (r Reservation) Nights() int {
	return int(r.CheckOut().Sub(r.CheckIn()).Hours() / 24)
}

// MarshalJSON renders calendar dates as YYYY-MM-DD.
func (r Reservation) MarshalJSON() ([]byte, error) {
	type alias Reservation
	return json.Marshal(struct {
		alias
		CheckInDate  string `json:"checkInDate"`
		CheckOutDate string `json:"checkOutDate"`
		Nights       int    `json:"nights"`
	}{
		alias:        alias(r),
		CheckInDate:  r.CheckIn().Format(DateLayout),
		CheckOutDate: r.CheckOut().Format(DateLayout),
		Nights:       r.Nights(),
	})
}

// DateLayout is the wire format of every calendar date.
const DateLayout = "2006-01-02"

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
