// handlers_fish.go - Creation endpoint
package api

import (
	"errors"
	"net/http"

	"github.com/fish-tracker/backend/internal/submit"
	"github.com/labstack/echo/v4"
)

// FishHandlerImpl implements FishHandler
type FishHandlerImpl struct {
	submitter Submitter
}

// NewFishHandler creates a fish handler
func NewFishHandler(s Submitter) FishHandler {
	return &FishHandlerImpl{submitter: s}
}

// HandleCreateFish forwards the form to the tracking service. The new fish
// is not returned; it shows up after the next poll.
func (h *FishHandlerImpl) HandleCreateFish(c echo.Context) error {
	var form submit.Form
	if err := c.Bind(&form); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	rcpt, err := h.submitter.Submit(c.Request().Context(), form)
	if err != nil {
		var ve *submit.ValidationError
		if errors.As(err, &ve) {
			return NewValidationError(ve.Field)
		}
		return NewBadGatewayError(submit.FailedMessage, err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"status":        "accepted",
		"correlationId": rcpt.CorrelationID,
		"message":       "The new fish will appear after the next refresh.",
	})
}
