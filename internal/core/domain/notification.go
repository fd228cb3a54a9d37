package domain

import "time"

// Notification is an outbound WhatsApp message addressed to a user.
type Notification struct {
	ID           string
	UserID       string
	PoliticianID *string
	EventID      *string
	Title        string
	Message      string
	Status       NotificationStatus
	ScheduledFor *time.Time
	SentAt       *time.Time
	DeliveredAt  *time.Time
	ErrorMessage *string
	Metadata     map[string]any
	CreatedAt    time.Time
}

type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "PENDING"
	NotificationStatusSent      NotificationStatus = "SENT"
	NotificationStatusDelivered NotificationStatus = "DELIVERED"
	NotificationStatusFailed    NotificationStatus = "FAILED"
)

// AllNotificationStatuses lists statuses in lifecycle order.
var AllNotificationStatuses = []NotificationStatus{
	NotificationStatusPending,
	NotificationStatusSent,
	NotificationStatusDelivered,
	NotificationStatusFailed,
}

// Delivery selects how a freshly created notification enters the pipeline.
type Delivery int

const (
	// DeliverNow dispatches the notification as part of its creation.
	DeliverNow Delivery = iota
	// DeliverScheduled leaves the notification for the sweep to pick up.
	DeliverScheduled
)

func (d Delivery) String() string {
	switch d {
	case DeliverNow:
		return "now"
	case DeliverScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// NotificationStats aggregates a user's notifications by status.
type NotificationStats struct {
	Total              int
	ByStatus           map[NotificationStatus]int
	LastNotificationAt *time.Time
}

// DeliveryEvent is published whenever a notification reaches a terminal status.
type DeliveryEvent struct {
	NotificationID string             `json:"notification_id"`
	UserID         string             `json:"user_id"`
	Status         NotificationStatus `json:"status"`
	MessageID      string             `json:"message_id,omitempty"`
	Error          string             `json:"error,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}
