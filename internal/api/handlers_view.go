// handlers_view.go - Read-only views of the shared display state
package api

import (
	"bytes"
	"net/http"

	"github.com/fish-tracker/backend/internal/display"
	"github.com/fish-tracker/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is the content type of msgpack responses.
const MIMEApplicationMsgpack = "application/msgpack"

// ViewHandlerImpl implements ViewHandler
type ViewHandlerImpl struct {
	store    storage.Reader
	renderer display.Renderer
}

// NewViewHandler creates a view handler
func NewViewHandler(store storage.Reader, renderer display.Renderer) ViewHandler {
	return &ViewHandlerImpl{store: store, renderer: renderer}
}

// HandleGetView returns the snapshot, status and rendered surfaces.
func (h *ViewHandlerImpl) HandleGetView(c echo.Context) error {
	v := h.store.View()
	page := h.renderer.Render(v)
	return c.JSON(http.StatusOK, NewViewResponse(v, &page))
}

// HandleGetViewMsgpack returns the same view msgpack-encoded, without the
// rendered page.
func (h *ViewHandlerImpl) HandleGetViewMsgpack(c echo.Context) error {
	resp := NewViewResponse(h.store.View(), nil)

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(resp); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, MIMEApplicationMsgpack, buf.Bytes())
}

// HandleGetMarkers returns the map settings and one marker per plottable fish.
func (h *ViewHandlerImpl) HandleGetMarkers(c echo.Context) error {
	v := h.store.View()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"revision": v.Revision,
		"map":      h.renderer.Map,
		"markers":  display.MapMarkers(v, h.renderer.Legend),
	})
}

// HandleGetTable returns the table rows.
func (h *ViewHandlerImpl) HandleGetTable(c echo.Context) error {
	v := h.store.View()
	rows := display.TableRows(v)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"revision": v.Revision,
		"count":    len(rows),
		"rows":     rows,
		"banner":   display.BannerFor(v),
	})
}
