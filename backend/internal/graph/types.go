package graph

import "time"

// Relationship is the result of a follow
type Relationship struct {
	FollowerID   string    `json:"followerId"`
	FolloweeID   string    `json:"followeeId"`
	CreatedAtUTC time.Time `json:"createdAtUtc"`
	// IsActive is always true; unfollowed edges are deleted, not flagged
	IsActive bool `json:"isActive"`
}

// Profile is one entry of a followers or following listing
type Profile struct {
	ProfileID string `json:"userId"`
}
