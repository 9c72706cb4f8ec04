package models

import (
	"encoding/json"
	"time"
)

const (
	EventBidCreated           = "bid.created"
	EventBidResponded         = "bid.responded"
	EventBidCancelled         = "bid.cancelled"
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// OutboxEvent records a state change that still needs to be announced. It
// is written in the same transaction as the change itself. Delivered lists
// the user:channel pairs that already received it, so a retry only resends
// what failed.
type OutboxEvent struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	EventType   string       `json:"eventType" gorm:"type:varchar(64);index;not null"`
	AggregateID string       `json:"aggregateId" gorm:"type:uuid;index"`
	Payload     string       `json:"payload" gorm:"type:jsonb;not null"`
	Status      OutboxStatus `json:"status" gorm:"type:varchar(20);index;not null;default:pending"`
	Attempts    int          `json:"attempts"`
	LastError   string       `json:"lastError"`
	NextAttempt time.Time    `json:"nextAttempt" gorm:"index"`
	Delivered   []string     `json:"delivered" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time    `json:"createdAt"`
	ProcessedAt *time.Time   `json:"processedAt"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

func DeliveryKey(userID, channel string) string {
	return userID + ":" + channel
}

func (e *OutboxEvent) HasDelivered(key string) bool {
	for _, k := range e.Delivered {
		if k == key {
			return true
		}
	}
	return false
}

// MarkDelivered records keys, ignoring ones already present.
func (e *OutboxEvent) MarkDelivered(keys ...string) {
	for _, k := range keys {
		if !e.HasDelivered(k) {
			e.Delivered = append(e.Delivered, k)
		}
	}
}

// BookingStatusChange is the payload of EventBookingStatusChanged.
type BookingStatusChange struct {
	Booking Booking       `json:"booking"`
	From    BookingStatus `json:"from"`
	To      BookingStatus `json:"to"`
	ActorID string        `json:"actorId"`
}

func NewOutboxEvent(eventType, aggregateID string, payload interface{}) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     string(data),
		Status:      OutboxStatusPending,
		NextAttempt: time.Now(),
	}, nil
}
