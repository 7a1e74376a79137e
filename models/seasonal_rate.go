package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SeasonalRate is a date-bounded percentage discount on a room's base
// price. Both StartDate and EndDate are inclusive.
type SeasonalRate struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	RoomID             uint           `gorm:"column:room_id;index;not null" json:"roomId"`
	StartDate          datatypes.Date `gorm:"column:start_date;index" json:"startDate"`
	EndDate            datatypes.Date `gorm:"column:end_date;index" json:"endDate"`
	DiscountPercentage float64        `gorm:"column:discount_percentage;type:decimal(5,2)" json:"discountPercentage"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Room *Room `gorm:"foreignKey:RoomID;references:ID" json:"-"`
}

func (r SeasonalRate) Start() time.Time { return calendarDay(time.Time(r.StartDate)) }

func (r SeasonalRate) End() time.Time { return calendarDay(time.Time(r.EndDate)) }

// Covers reports whether day falls inside the rate window.
func (r SeasonalRate) Covers(day time.Time) bool {
	d := calendarDay(day)
	return !d.Before(r.Start()) && !d.After(r.End())
}

func (r SeasonalRate) MarshalJSON() ([]byte, error) {
	type alias SeasonalRate
	return json.Marshal(struct {
		alias
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}{
		alias:     alias(r),
		StartDate: r.Start().Format(DateLayout),
		EndDate:   r.End().Format(DateLayout),
	})
}
