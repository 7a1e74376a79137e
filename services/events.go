package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"bungalow-backend/models"

	"github.com/nats-io/nats.go"
)

// ReservationChanged is the message published after a reservation change
// has been committed.
type ReservationChanged struct {
	ReservationID uint                     `json:"reservationId"`
	ReferenceCode string                   `json:"referenceCode"`
	BungalowID    uint                     `json:"bungalowId"`
	Action        models.ReservationAction `json:"action"`
	Status        models.ReservationStatus `json:"status"`
	PaymentStatus models.PaymentStatus     `json:"paymentStatus"`
	Version       uint                     `json:"version"`
	Actor         string                   `json:"actor,omitempty"`
	OccurredAt    time.Time                `json:"occurredAt"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event ReservationChanged) error
	Close() error
}

type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("bungalow-backend"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if prefix == "" {
		prefix = "reservations"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Subject is "<prefix>.<action>", e.g. "reservations.approve".
func (p *NATSPublisher) Subject(action models.ReservationAction) string {
	return p.prefix + "." + string(action)
}

func (p *NATSPublisher) Publish(ctx context.Context, event ReservationChanged) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return p.conn.Publish(p.Subject(event.Action), data)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ReservationChanged) error { return nil }

func (NoopPublisher) Close() error { return nil }

// publishAfterCommit never fails the request: the change is already durable.
func publishAfterCommit(pub EventPublisher, event ReservationChanged) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, event); err != nil {
		log.Printf("warning: publish %s for reservation %d failed: %v", event.Action, event.ReservationID, err)
	}
}
