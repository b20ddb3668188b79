package models

import "time"

// Snapshot is the full set of fish known at CapturedAt, in arrival order.
// It is replaced wholesale on every successful poll.
type Snapshot struct {
	Entities   []Fish    `json:"entities"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Len returns the number of entities in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Entities)
}

// Clone returns a deep copy so readers never share the backing array with the owner.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{CapturedAt: s.CapturedAt}
	if s.Entities != nil {
		out.Entities = make([]Fish, len(s.Entities))
		copy(out.Entities, s.Entities)
	}
	return out
}

// SyncState is the health of the most recent synchronization attempt.
type SyncState string

const (
	SyncStateHealthy  SyncState = "healthy"
	SyncStateDegraded SyncState = "degraded"
)

// SyncStatus is Healthy, or Degraded with a human-readable reason.
type SyncStatus struct {
	State  SyncState `json:"state"`
	Reason string    `json:"reason,omitempty"`
}

// Healthy returns a healthy status.
func Healthy() SyncStatus {
	return SyncStatus{State: SyncStateHealthy}
}

// Degraded returns a degraded status carrying reason.
func Degraded(reason string) SyncStatus {
	return SyncStatus{State: SyncStateDegraded, Reason: reason}
}

// IsDegraded reports whether the status is Degraded.
func (s SyncStatus) IsDegraded() bool {
	return s.State == SyncStateDegraded
}

// View is a consistent read of the shared display state.
type View struct {
	SessionID string     `json:"sessionId"`
	Snapshot  Snapshot   `json:"snapshot"`
	Status    SyncStatus `json:"status"`
	// LastSync is the capture time of the last successful poll, or the
	// session start time when no poll has succeeded yet.
	LastSync time.Time `json:"lastSync"`
	// Revision increases on every state change.
	Revision uint64 `json:"revision"`
}
