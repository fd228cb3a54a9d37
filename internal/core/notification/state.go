package notification

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/brazyl/brazyl/internal/core/domain"
)

// Status is an alias for domain.NotificationStatus for internal use.
type Status = domain.NotificationStatus

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid notification transition")

// ValidTransitions defines the delivery lifecycle.
// DELIVERED and FAILED have no outgoing edges and nothing leads back to PENDING.
var ValidTransitions = map[Status][]Status{
	domain.NotificationStatusPending: {
		domain.NotificationStatusSent,
		domain.NotificationStatusFailed,
	},
	domain.NotificationStatusSent: {
		domain.NotificationStatusDelivered,
		domain.NotificationStatusFailed,
	},
}

// CanTransition checks if a transition from one status to another is valid.
func CanTransition(from, to Status) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// SourcesFor returns the statuses from which target can be reached.
func SourcesFor(target Status) []Status {
	var sources []Status
	for _, from := range domain.AllNotificationStatuses {
		if CanTransition(from, target) {
			sources = append(sources, from)
		}
	}
	return sources
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s Status) bool {
	return len(ValidTransitions[s]) == 0
}

// Check returns a wrapped ErrInvalidTransition when from -> to is not allowed.
func Check(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Transition represents a status change with metadata.
type Transition struct {
	NotificationID string
	From           Status
	To             Status
	Reason         string
	Timestamp      time.Time
}

// NewTransition creates a new transition record.
func NewTransition(id string, from, to Status, reason string) Transition {
	return Transition{
		NotificationID: id,
		From:           from,
		To:             to,
		Reason:         reason,
		Timestamp:      time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// StatusDescription returns a human-readable description of a status.
func StatusDescription(s Status) string {
	switch s {
	case domain.NotificationStatusPending:
		return "Pending - waiting for its scheduled time"
	case domain.NotificationStatusSent:
		return "Sent - handed to the delivery gateway"
	case domain.NotificationStatusDelivered:
		return "Delivered - gateway accepted the message"
	case domain.NotificationStatusFailed:
		return "Failed - no delivery, requires resubmission"
	default:
		return "Unknown status"
	}
}
