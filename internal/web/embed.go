// Package web serves the fish tracker page and its static assets from the binary.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/fish-tracker/backend/internal/display"
	"github.com/fish-tracker/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html static/*
var assets embed.FS

// StaticFS returns the embedded static folder as root.
func StaticFS() (fs.FS, error) {
	return fs.Sub(assets, "static")
}

// RegisterStaticRoutes serves /static/* from the embedded filesystem.
// API routes should be registered first.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := StaticFS()
	if err != nil {
		return err
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))

	e.GET("/static/*", func(c echo.Context) error {
		name := strings.TrimPrefix(c.Request().URL.Path, "/static/")
		f, err := staticFS.Open(name)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "asset not found")
		}
		stat, err := f.Stat()
		f.Close()
		if err != nil || stat.IsDir() {
			return echo.NewHTTPError(http.StatusNotFound, "asset not found")
		}
		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})
	return nil
}

// PageData is what the page template renders.
type PageData struct {
	Title   string
	Version string
	Page    display.Page
}

// PageHandler renders GET / from the current view.
type PageHandler struct {
	store    storage.Reader
	renderer display.Renderer
	version  string
	tmpl     *template.Template
}

// NewPageHandler parses the embedded template.
func NewPageHandler(store storage.Reader, renderer display.Renderer, version string) (*PageHandler, error) {
	tmpl, err := template.ParseFS(assets, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &PageHandler{
		store:    store,
		renderer: renderer,
		version:  version,
		tmpl:     tmpl,
	}, nil
}

// HandlePage renders the full page server-side; the browser then keeps it
// current through the websocket feed.
func (h *PageHandler) HandlePage(c echo.Context) error {
	data := PageData{
		Title:   "Fish Tracker",
		Version: h.version,
		Page:    h.renderer.Render(h.store.View()),
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render page")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// Register mounts the page and the static assets.
func (h *PageHandler) Register(e *echo.Echo) error {
	e.GET("/", h.HandlePage)
	return RegisterStaticRoutes(e)
}
