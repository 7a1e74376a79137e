package models

import (
	"encoding/json"
	"testing"
	"time"

	"gorm.io/datatypes"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestReservationStatusNextStatus(t *testing.T) {
	tests := []struct {
		name   string
		from   ReservationStatus
		action ReservationAction
		want   ReservationStatus
		ok     bool
	}{
		{"pendingApprove", ReservationPending, ActionApprove, ReservationConfirmed, true},
		{"pendingCancel", ReservationPending, ActionCancel, ReservationCancelled, true},
		{"pendingComplete", ReservationPending, ActionComplete, "", false},
		{"confirmedApprove", ReservationConfirmed, ActionApprove, "", false},
		{"confirmedCancel", ReservationConfirmed, ActionCancel, ReservationCancelled, true},
		{"confirmedComplete", ReservationConfirmed, ActionComplete, ReservationCompleted, true},
		{"cancelledCancel", ReservationCancelled, ActionCancel, "", false},
		{"cancelledApprove", ReservationCancelled, ActionApprove, "", false},
		{"completedCancel", ReservationCompleted, ActionCancel, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.from.NextStatus(tt.action)
			if ok != tt.ok || got != tt.want {
				t.Errorf("%s.NextStatus(%s) = (%q, %v), want (%q, %v)", tt.from, tt.action, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestReservationStatusIsTerminal(t *testing.T) {
	if ReservationPending.IsTerminal() || ReservationConfirmed.IsTerminal() {
		t.Error("PENDING and CONFIRMED must not be terminal")
	}
	if !ReservationCancelled.IsTerminal() || !ReservationCompleted.IsTerminal() {
		t.Error("CANCELLED and COMPLETED must be terminal")
	}
}

func TestParseReservationStatus(t *testing.T) {
	got, err := ParseReservationStatus(" confirmed ")
	if err != nil || got != ReservationConfirmed {
		t.Errorf("ParseReservationStatus() = (%q, %v), want CONFIRMED", got, err)
	}
	if _, err := ParseReservationStatus("archived"); err == nil {
		t.Error("ParseReservationStatus(archived) should fail")
	}
}

func TestReservationOccupiesInclusive(t *testing.T) {
	r := Reservation{
		CheckInDate:  datatypes.Date(day("2024-06-10")),
		CheckOutDate: datatypes.Date(day("2024-06-12")),
	}

	for _, d := range []string{"2024-06-10", "2024-06-11", "2024-06-12"} {
		if !r.Occupies(day(d)) {
			t.Errorf("Occupies(%s) = false, want true", d)
		}
	}
	for _, d := range []string{"2024-06-09", "2024-06-13"} {
		if r.Occupies(day(d)) {
			t.Errorf("Occupies(%s) = true, want false", d)
		}
	}
	if r.Nights() != 2 {
		t.Errorf("Nights() = %d, want 2", r.Nights())
	}
}

func TestReservationOccupiesIgnoresOffset(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	r := Reservation{
		CheckInDate:  datatypes.Date(time.Date(2024, 6, 10, 0, 0, 0, 0, loc)),
		CheckOutDate: datatypes.Date(time.Date(2024, 6, 12, 0, 0, 0, 0, loc)),
	}
	if got := r.CheckIn().Format(DateLayout); got != "2024-06-10" {
		t.Errorf("CheckIn() = %s, want 2024-06-10", got)
	}
	if r.Occupies(time.Date(2024, 6, 13, 1, 0, 0, 0, loc)) {
		t.Error("Occupies(2024-06-13 01:00 +09:00) = true, want false")
	}
}

func TestReservationMarshalJSON(t *testing.T) {
	r := Reservation{
		ID:            7,
		BungalowName:  "Ocean View",
		CheckInDate:   datatypes.Date(day("2024-06-10")),
		CheckOutDate:  datatypes.Date(day("2024-06-12")),
		Status:        ReservationPending,
		PaymentStatus: PaymentPending,
		Version:       1,
	}

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if out["checkInDate"] != "2024-06-10" || out["checkOutDate"] != "2024-06-12" {
		t.Errorf("dates = %v / %v, want 2024-06-10 / 2024-06-12", out["checkInDate"], out["checkOutDate"])
	}
	if out["status"] != "PENDING" || out["bungalowName"] != "Ocean View" {
		t.Errorf("unexpected payload: %s", raw)
	}
	if out["nights"] != float64(2) {
		t.Errorf("nights = %v, want 2", out["nights"])
	}
}
