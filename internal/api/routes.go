// routes.go - Route registration and middleware helpers
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fish-tracker/backend/internal/display"
	"github.com/fish-tracker/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store     storage.Reader
	Sessions  SessionController
	Submitter Submitter
	// Journal is nil when the journal is disabled.
	Journal  JournalReader
	Renderer display.Renderer
	Hub      *Hub
	Version  string
	// BaseContext bounds pollers started through the API.
	BaseContext context.Context
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	View    ViewHandler
	Fish    FishHandler
	Session SessionHandler
	Journal JournalHandler
	Hub     *Hub
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Store, deps.Hub),
		View:    NewViewHandler(deps.Store, deps.Renderer),
		Fish:    NewFishHandler(deps.Submitter),
		Session: NewSessionHandler(deps.Sessions, deps.BaseContext),
		Journal: NewJournalHandler(deps.Journal, deps.Sessions),
		Hub:     deps.Hub,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	apiGroup.GET("/view", handlers.View.HandleGetView)
	apiGroup.GET("/view/msgpack", handlers.View.HandleGetViewMsgpack)
	apiGroup.GET("/map/markers", handlers.View.HandleGetMarkers)
	apiGroup.GET("/fish", handlers.View.HandleGetTable)
	apiGroup.POST("/fish", handlers.Fish.HandleCreateFish)

	apiGroup.GET("/session", handlers.Session.HandleGetSession)
	apiGroup.GET("/session/:id", handlers.Session.HandleGetSessionByID)
	apiGroup.POST("/session/restart", handlers.Session.HandleRestartSession)

	apiGroup.GET("/journal", handlers.Journal.HandleGetJournal)

	if handlers.Hub != nil {
		apiGroup.GET("/ws", handlers.Hub.HandleWebSocket)
	}
}

// MiddlewareOptions mirrors the server section of the config.
type MiddlewareOptions struct {
	RequestLogging    bool
	RequestTimeout    time.Duration
	EnableCompression bool
	CompressionLevel  int
	BodyLimit         string
	EnableCORS        bool
	AllowOrigins      []string
}

// SetupMiddleware configures common middleware and the error handler
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !opts.RequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || isWebSocket(c)
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if opts.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout:      opts.RequestTimeout,
			Skipper:      isWebSocket,
			ErrorMessage: "Request timeout",
		}))
	}

	if opts.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   opts.CompressionLevel,
			Skipper: isWebSocket,
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		origins := opts.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

func isWebSocket(c echo.Context) bool {
	return strings.EqualFold(c.Request().Header.Get(echo.HeaderUpgrade), "websocket")
}
