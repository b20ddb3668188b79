package models

import "time"

// SessionStatus represents the lifecycle state of a view session.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusEnded  SessionStatus = "ended"
)

// ViewSession describes one lifetime of the synchronizer.
type ViewSession struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
}

// NewViewSession creates an active ViewSession.
func NewViewSession(id string, startedAt time.Time) *ViewSession {
	return &ViewSession{
		ID:        id,
		Status:    SessionStatusActive,
		StartedAt: startedAt,
	}
}
