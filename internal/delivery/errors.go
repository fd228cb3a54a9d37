package delivery

import (
	"errors"
	"fmt"

	"github.com/brazyl/brazyl/internal/infra/storage"
)

// ErrUserNotFound is returned when a notification targets an unknown user.
var ErrUserNotFound = errors.New("user not found")

// RecipientUnresolvedError means the notification was failed because its user
// has no deliverable address. The gateway was never called.
type RecipientUnresolvedError struct {
	NotificationID string
}

func (e *RecipientUnresolvedError) Error() string {
	return fmt.Sprintf("notification %s: no recipient address", e.NotificationID)
}

func (e *RecipientUnresolvedError) Unwrap() error {
	return storage.ErrRecipientNotFound
}

// DeliveryGatewayError means the gateway rejected or never answered the send.
// The notification has been moved to FAILED.
type DeliveryGatewayError struct {
	NotificationID string
	Err            error
}

func (e *DeliveryGatewayError) Error() string {
	return fmt.Sprintf("notification %s: gateway send failed: %v", e.NotificationID, e.Err)
}

func (e *DeliveryGatewayError) Unwrap() error {
	return e.Err
}
