package follow

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrPoliticianNotFound = errors.New("politician not found")
	ErrFollowNotFound     = errors.New("follow not found")
)

// AlreadyFollowingError is returned when the user already follows the politician.
type AlreadyFollowingError struct {
	UserID       string
	PoliticianID string
	Err          error
}

func (e *AlreadyFollowingError) Error() string {
	return fmt.Sprintf("user %s already follows politician %s", e.UserID, e.PoliticianID)
}

func (e *AlreadyFollowingError) Unwrap() error {
	return e.Err
}

// LimitReachedError is returned when the user's plan allows no more follows.
type LimitReachedError struct {
	UserID string
	Limit  int
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("user %s reached the limit of %d followed politicians", e.UserID, e.Limit)
}
