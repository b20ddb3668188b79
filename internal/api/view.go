package api

import (
	"time"

	"github.com/fish-tracker/backend/internal/display"
	"github.com/fish-tracker/backend/internal/models"
)

// ViewResponse is the wire shape of the shared display state.
type ViewResponse struct {
	SessionID string            `json:"sessionId"`
	Snapshot  models.Snapshot   `json:"snapshot"`
	Status    models.SyncStatus `json:"status"`
	LastSync  time.Time         `json:"lastSync"`
	Revision  uint64            `json:"revision"`
	Page      *display.Page     `json:"page,omitempty"`
}

// NewViewResponse copies v; page may be nil.
func NewViewResponse(v models.View, page *display.Page) ViewResponse {
	return ViewResponse{
		SessionID: v.SessionID,
		Snapshot:  v.Snapshot,
		Status:    v.Status,
		LastSync:  v.LastSync,
		Revision:  v.Revision,
		Page:      page,
	}
}
