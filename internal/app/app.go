package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"resistorserver/internal/config"
	"resistorserver/internal/logger"
	"resistorserver/internal/repository/sqlite"
	"resistorserver/internal/routes"
	"resistorserver/internal/services"
	"resistorserver/internal/services/ai"
	"resistorserver/internal/services/storage"
	"resistorserver/internal/services/websocket"
)

type App struct {
	config           *config.Config
	logger           *logger.Logger
	db               *sqlite.DB
	detectorServices []*ai.DetectorService
	bufferService    *storage.BufferService
	hubService       *websocket.HubService
	manager          *services.Manager
	repos            routes.Repositories
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	readings := sqlite.NewReadingRepository(db)
	bands := sqlite.NewBandRepository(db)
	components := sqlite.NewComponentRepository(db)

	workers := cfg.ProcessingWorkers
	if workers <= 0 {
		workers = 1
	}
	detectorServices := make([]*ai.DetectorService, 0, workers)
	detectors := make([]ai.BandDetector, 0, workers)
	for i := 0; i < workers; i++ {
		ds := ai.NewDetectorService(cfg, log) // każdy worker ma własną sieć
		detectorServices = append(detectorServices, ds)
		detectors = append(detectors, ds)
	}

	buffer := storage.NewBufferService(cfg, readings, bands, components, log)
	hub := websocket.NewHubService(log)
	mng := services.NewManager(detectors, buffer, hub, cfg, log)

	return &App{
		config:           cfg,
		logger:           log,
		db:               db,
		detectorServices: detectorServices,
		bufferService:    buffer,
		hubService:       hub,
		manager:          mng,
		repos:            routes.Repositories{Readings: readings, Components: components},
	}, nil
}

func (a *App) Run() error {
	// Start background services
	go a.bufferService.Run()
	go a.hubService.Run()
	for _, ds := range a.detectorServices {
		go ds.Warmup()
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: routes.SetupRoutes(a.manager, a.repos, a.config, a.logger),
	}

	fmt.Printf("🚀 Resistor Reader Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Images: %s\n", a.config.ImageDirectory)
	fmt.Printf("🗄️  Database: %s\n", a.config.DatabasePath)
	fmt.Printf("🤖 AI Model: %s\n", a.config.ModelPath)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.shutdown()
		return err
	case sig := <-stop:
		a.logger.Info("Received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown: %v", err)
	}
	a.shutdown()
	return nil
}

// shutdown stops the workers, flushes buffered readings and closes the database.
func (a *App) shutdown() {
	a.manager.Stop()
	a.bufferService.Stop()
	a.hubService.Stop()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
}
