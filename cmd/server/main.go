package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fish-tracker/backend/internal/api"
	"github.com/fish-tracker/backend/internal/config"
	"github.com/fish-tracker/backend/internal/display"
	"github.com/fish-tracker/backend/internal/journal"
	"github.com/fish-tracker/backend/internal/logging"
	"github.com/fish-tracker/backend/internal/models"
	"github.com/fish-tracker/backend/internal/poller"
	"github.com/fish-tracker/backend/internal/session"
	"github.com/fish-tracker/backend/internal/storage"
	"github.com/fish-tracker/backend/internal/submit"
	"github.com/fish-tracker/backend/internal/tracker"
	"github.com/fish-tracker/backend/internal/web"
	"github.com/labstack/echo/v4"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: ./fishview.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.SetLevel(cfg.Advanced.LogLevel)
	api.SetErrorDetails(cfg.Advanced.ErrorDetails)
	logger := logging.New("fishview")

	client, err := tracker.New(tracker.Config{BaseURL: cfg.Tracker.BaseURL})
	if err != nil {
		fmt.Printf("Invalid tracker configuration: %v\n", err)
		os.Exit(1)
	}

	renderer, err := buildRenderer(cfg)
	if err != nil {
		fmt.Printf("Failed to load display settings: %v\n", err)
		os.Exit(1)
	}

	store := storage.NewMemoryStore()

	// Journal is optional; a nil recorder simply records nothing.
	var (
		recorder     poller.Recorder
		journalStore *journal.Journal
	)
	if cfg.Journal.Enabled {
		journalStore, err = journal.Open(cfg.Journal.MaxRows)
		if err != nil {
			logger.Warnf("sync journal disabled: %v", err)
		} else {
			recorder = journalStore
			defer journalStore.Close()
		}
	}

	sessions, err := session.NewManager(session.Config{
		Fetcher:  client,
		State:    store,
		Recorder: recorder,
	})
	if err != nil {
		fmt.Printf("Failed to create session manager: %v\n", err)
		os.Exit(1)
	}

	submitOpts := []submit.Option{submit.WithSession(sessions.CurrentID)}
	if journalStore != nil {
		submitOpts = append(submitOpts, submit.WithRecorder(journalStore))
	}
	submitter := submit.New(client, store, submitOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := api.NewHub(store, renderer, api.HubConfig{
		ReadBufferSize:  cfg.Advanced.WSReadBufferSize,
		WriteBufferSize: cfg.Advanced.WSWriteBufferSize,
		SendQueue:       cfg.Advanced.WSSendQueue,
		AllowOrigins:    cfg.Server.AllowOrigins,
	})
	go hub.Run(ctx)

	deps := &api.Dependencies{
		Store:       store,
		Sessions:    sessions,
		Submitter:   submitter,
		Renderer:    renderer,
		Hub:         hub,
		Version:     Version,
		BaseContext: ctx,
	}
	if journalStore != nil {
		deps.Journal = journalStore
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger = logging.New("echo")

	api.SetupMiddleware(e, api.MiddlewareOptions{
		RequestLogging:    cfg.Advanced.EnableRequestLogging,
		RequestTimeout:    cfg.Server.RequestTimeout,
		EnableCompression: cfg.Server.EnableCompression,
		CompressionLevel:  cfg.Server.CompressionLevel,
		BodyLimit:         cfg.Server.BodyLimit,
		EnableCORS:        cfg.Server.EnableCORS,
		AllowOrigins:      cfg.Server.AllowOrigins,
	})
	api.RegisterRoutes(e, api.NewHandlers(deps))

	page, err := web.NewPageHandler(store, renderer, Version)
	if err != nil {
		fmt.Printf("Failed to load page template: %v\n", err)
		os.Exit(1)
	}
	if err := page.Register(e); err != nil {
		fmt.Printf("Failed to register static routes: %v\n", err)
		os.Exit(1)
	}

	sess, err := sessions.Start(ctx)
	if err != nil {
		fmt.Printf("Failed to start view session: %v\n", err)
		os.Exit(1)
	}

	s := &http.Server{
		Addr:         cfg.ServerAddr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	printBanner(cfg, client.Endpoint(), sess)

	serverErr := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Errorf("server failed: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// No poll may fire or land after this point.
	if _, err := sessions.End(); err != nil && !errors.Is(err, session.ErrNoSession) {
		logger.Warnf("ending view session: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	logger.Info("server stopped")
}

func buildRenderer(cfg *config.AppConfig) (display.Renderer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return display.Renderer{}, err
	}

	legend := display.DefaultLegend()
	if cfg.Display.LegendFile != "" {
		legend, err = display.ParseLegend(cfg.Display.LegendFile)
		if err != nil {
			return display.Renderer{}, fmt.Errorf("legend %s: %w", cfg.Display.LegendFile, err)
		}
	}

	return display.Renderer{
		Map: display.MapSettings{
			Center:      models.Location{Latitude: cfg.Display.CenterLat, Longitude: cfg.Display.CenterLon},
			Zoom:        cfg.Display.Zoom,
			TileURL:     cfg.Display.TileURL,
			Attribution: cfg.Display.Attribution,
		},
		Legend:   legend,
		Location: loc,
	}, nil
}

func printBanner(cfg *config.AppConfig, endpoint string, sess models.ViewSession) {
	configFile := cfg.File
	if configFile == "" {
		configFile = "(defaults + environment)"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Fish Tracker Viewer                             ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Session:    %-45s║\n", sess.ID)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configFile)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.ServerAddr())
	fmt.Printf("║  Tracker:   %-46s║\n", endpoint)
	fmt.Printf("║  Refresh:   every %-40s║\n", poller.DefaultInterval)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
}
