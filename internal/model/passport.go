package model

import "time"

// Passport is the cached projection of a user's membership and role facts,
// distinct from core profile data. Each sync replaces the cached projection
// wholesale; passports are never partially merged.
type Passport struct {
	UserID   string            `json:"user_id"`
	Groups   []GroupMembership `json:"groups"`
	Roles    []string          `json:"roles"`
	SyncedAt time.Time         `json:"synced_at"`
}

// GroupMembership ties a user to a timeline-scoped group.
type GroupMembership struct {
	TimelineID string    `json:"timeline_id"`
	Role       string    `json:"role"`
	JoinedAt   time.Time `json:"joined_at"`
}
