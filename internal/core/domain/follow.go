package domain

import "time"

// DefaultMaxPoliticians is the follow limit of a user without an explicit plan.
const DefaultMaxPoliticians = 5

// Follow records that a user subscribes to a politician's activity.
type Follow struct {
	ID           string
	UserID       string
	PoliticianID string
	CreatedAt    time.Time

	// Politician is filled by listings
	Politician *Politician
}

// FollowStats summarizes a user's follows against their plan limit.
type FollowStats struct {
	Total      int
	MaxAllowed int
	Remaining  int
	ByPosition map[Position]int
	ByState    map[string]int
}
