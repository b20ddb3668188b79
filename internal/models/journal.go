package models

import "time"

// SyncEventKind classifies one journal row.
type SyncEventKind string

const (
	SyncEventOK         SyncEventKind = "ok"
	SyncEventNetwork    SyncEventKind = "network"
	SyncEventProtocol   SyncEventKind = "protocol"
	SyncEventValidation SyncEventKind = "validation"
	SyncEventSuperseded SyncEventKind = "superseded"
	SyncEventDiscarded  SyncEventKind = "discarded"
)

// SyncOp is the operation a journal row describes.
type SyncOp string

const (
	SyncOpPoll   SyncOp = "poll"
	SyncOpCreate SyncOp = "create"
)

// SyncEvent is one recorded synchronization outcome.
type SyncEvent struct {
	ID         int64         `json:"id"`
	SessionID  string        `json:"sessionId"`
	Op         SyncOp        `json:"op"`
	Seq        uint64        `json:"seq,omitempty"`
	Kind       SyncEventKind `json:"kind"`
	Entities   int           `json:"entities"`
	DurationMs int64         `json:"durationMs"`
	Reason     string        `json:"reason,omitempty"`
	At         time.Time     `json:"at"`
}
