package message

import (
	"context"
	"time"
)

// TopicStatusChanged is the topic every status transition is published on.
const TopicStatusChanged = "messageStatusChanged"

// StatusChanged is emitted after a message's status was persisted.
// Delivery is at-least-once; consumers dedupe on EventID.
type StatusChanged struct {
	EventID    string    `json:"eventId"`
	MessageID  int64     `json:"messageId"`
	UserID     int64     `json:"userId"`
	Status     Status    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

//go:generate mockgen -source=./event.go -package=messagemocks -destination=./mocks/publisher.mock.go Publisher

// Publisher delivers status change events to external subscribers.
type Publisher interface {
	Publish(ctx context.Context, evt StatusChanged) error
}
