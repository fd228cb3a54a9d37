package domain

import "time"

// User is a subscriber that receives notifications.
type User struct {
	ID             string
	Name           string
	WhatsAppNumber string
	Active         bool
	MaxPoliticians int
	CreatedAt      time.Time
}

// FollowLimit returns the number of politicians u may follow.
func (u *User) FollowLimit() int {
	if u.MaxPoliticians <= 0 {
		return DefaultMaxPoliticians
	}
	return u.MaxPoliticians
}
