// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"time"

	"github.com/fish-tracker/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	store   storage.Reader
	hub     *Hub
}

// NewHealthHandler creates a new health handler; hub may be nil
func NewHealthHandler(version string, store storage.Reader, hub *Hub) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		store:   store,
		hub:     hub,
	}
}

// HandleHealth returns server health status. A degraded sync does not make
// the service unhealthy; it is reported alongside.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	v := h.store.View()

	resp := map[string]interface{}{
		"status":    "ok",
		"version":   h.version,
		"sessionId": v.SessionID,
		"sync":      v.Status,
		"lastSync":  v.LastSync.Format(time.RFC3339),
		"fishCount": v.Snapshot.Len(),
		"revision":  v.Revision,
	}
	if h.hub != nil {
		resp["clients"] = h.hub.ClientCount()
	}
	return c.JSON(http.StatusOK, resp)
}
