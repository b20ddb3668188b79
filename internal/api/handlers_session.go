// handlers_session.go - View session endpoints
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SessionHandlerImpl implements SessionHandler
type SessionHandlerImpl struct {
	sessions SessionController
	// base outlives requests; pollers started on restart are bound to it
	base context.Context
}

// NewSessionHandler creates a session handler
func NewSessionHandler(sessions SessionController, base context.Context) SessionHandler {
	if base == nil {
		base = context.Background()
	}
	return &SessionHandlerImpl{sessions: sessions, base: base}
}

// HandleGetSession returns the active session and recently ended ones.
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	resp := map[string]interface{}{
		"history": h.sessions.History(),
	}
	if cur, ok := h.sessions.Current(); ok {
		resp["current"] = cur
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetSessionByID looks a session up among the active and recently
// ended ones.
func (h *SessionHandlerImpl) HandleGetSessionByID(c echo.Context) error {
	id := c.Param("id")
	if cur, ok := h.sessions.Current(); ok && cur.ID == id {
		return c.JSON(http.StatusOK, cur)
	}
	for _, sess := range h.sessions.History() {
		if sess.ID == id {
			return c.JSON(http.StatusOK, sess)
		}
	}
	return NewNotFoundError("view session", id)
}

// HandleRestartSession ends the active session and starts a new one with
// an empty, healthy state.
func (h *SessionHandlerImpl) HandleRestartSession(c echo.Context) error {
	sess, err := h.sessions.Restart(h.base)
	if err != nil {
		return NewInternalError("failed to restart view session", err)
	}
	return c.JSON(http.StatusOK, sess)
}
