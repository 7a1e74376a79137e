package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "AVAILABLE"
	RoomBooked      RoomStatus = "BOOKED"
	RoomMaintenance RoomStatus = "MAINTENANCE"
)

func ParseRoomStatus(raw string) (RoomStatus, error) {
	s := RoomStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case RoomAvailable, RoomBooked, RoomMaintenance:
		return s, nil
	case "":
		return RoomAvailable, nil
	}
	return "", fmt.Errorf("invalid room status: %q", raw)
}

// Room is a bookable bungalow. Price is the base nightly price before any
// seasonal discount.
type Room struct {
	gorm.Model

	Name        string     `json:"name" gorm:"column:name;uniqueIndex;type:varchar(150)"`
	Description string     `json:"description" gorm:"type:text"`
	Price       float64    `json:"price" gorm:"type:decimal(12,2)"`
	Capacity    int        `json:"capacity" gorm:"column:capacity"`
	Status      RoomStatus `json:"status" gorm:"column:status;size:32;default:AVAILABLE"`
}
