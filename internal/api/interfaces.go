// interfaces.go - Handler interfaces and the contracts handlers depend on
package api

import (
	"context"

	"github.com/fish-tracker/backend/internal/models"
	"github.com/fish-tracker/backend/internal/submit"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// ViewHandler serves the shared display state
type ViewHandler interface {
	HandleGetView(c echo.Context) error
	HandleGetViewMsgpack(c echo.Context) error
	HandleGetMarkers(c echo.Context) error
	HandleGetTable(c echo.Context) error
}

// FishHandler handles creation requests
type FishHandler interface {
	HandleCreateFish(c echo.Context) error
}

// SessionHandler exposes the view session lifecycle
type SessionHandler interface {
	HandleGetSession(c echo.Context) error
	HandleGetSessionByID(c echo.Context) error
	HandleRestartSession(c echo.Context) error
}

// JournalHandler serves the sync journal
type JournalHandler interface {
	HandleGetJournal(c echo.Context) error
}

// Submitter forwards a creation form to the tracking service.
type Submitter interface {
	Submit(ctx context.Context, form submit.Form) (submit.Receipt, error)
}

// SessionController is the part of session.Manager the API uses.
type SessionController interface {
	Current() (models.ViewSession, bool)
	History() []models.ViewSession
	Restart(parent context.Context) (models.ViewSession, error)
}

// JournalReader queries recorded sync outcomes.
type JournalReader interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]models.SyncEvent, error)
	Counts(ctx context.Context, sessionID string) (map[models.SyncEventKind]int, error)
}
