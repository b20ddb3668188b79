// handlers_journal.go - Sync journal endpoint
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// MaxJournalLimit caps a single journal page.
const MaxJournalLimit = 500

// JournalHandlerImpl implements JournalHandler
type JournalHandlerImpl struct {
	journal  JournalReader
	sessions SessionController
}

// NewJournalHandler creates a journal handler; journal may be nil when disabled
func NewJournalHandler(journal JournalReader, sessions SessionController) JournalHandler {
	return &JournalHandlerImpl{journal: journal, sessions: sessions}
}

// HandleGetJournal returns the newest events of the active session, or of
// every session with ?session=all.
func (h *JournalHandlerImpl) HandleGetJournal(c echo.Context) error {
	if h.journal == nil {
		return NewServiceUnavailableError("sync journal is disabled")
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return NewBadRequestError("limit must be a positive integer", err)
		}
		if n > MaxJournalLimit {
			n = MaxJournalLimit
		}
		limit = n
	}

	sessionID := ""
	if c.QueryParam("session") != "all" {
		cur, _ := h.sessions.Current()
		sessionID = cur.ID
	}

	ctx := c.Request().Context()
	events, err := h.journal.Recent(ctx, sessionID, limit)
	if err != nil {
		return NewInternalError("failed to query sync journal", err)
	}
	counts, err := h.journal.Counts(ctx, sessionID)
	if err != nil {
		return NewInternalError("failed to count sync journal", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"limit":     limit,
		"events":    events,
		"counts":    counts,
	})
}
