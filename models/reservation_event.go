package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReservationEvent is one row of a reservation's audit trail, written in the
// same transaction as the change it records.
type ReservationEvent struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ReservationID uint              `gorm:"column:reservation_id;index;not null" json:"reservationId"`
	Action        ReservationAction `gorm:"column:action;size:32" json:"action"`
	Actor         string            `gorm:"column:actor;size:255" json:"actor,omitempty"`
	FromStatus    ReservationStatus `gorm:"column:from_status;size:32" json:"fromStatus,omitempty"`
	ToStatus      ReservationStatus `gorm:"column:to_status;size:32" json:"toStatus"`
	FromPayment   PaymentStatus     `gorm:"column:from_payment;size:32" json:"fromPayment,omitempty"`
	ToPayment     PaymentStatus     `gorm:"column:to_payment;size:32" json:"toPayment"`
	Version       uint              `gorm:"column:version" json:"version"`
	Payload       datatypes.JSON    `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
