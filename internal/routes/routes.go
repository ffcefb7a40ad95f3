package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"resistorserver/internal/config"
	"resistorserver/internal/handlers"
	"resistorserver/internal/logger"
	"resistorserver/internal/middleware"
	"resistorserver/internal/repository"
	"resistorserver/internal/services"
)

// Repositories groups the stores the HTTP API reads from.
type Repositories struct {
	Readings   repository.ReadingRepository
	Components repository.ComponentRepository
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean(path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the CORS and authentication middleware.
func SetupRoutes(manager *services.Manager, repos Repositories, cfg *config.Config, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()
	buffer := manager.GetBufferService()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Measurement endpoints
	mux.HandleFunc("/api/decode", handlers.DecodeHandler(manager, log))
	mux.HandleFunc("/api/measure", handlers.MeasureHandler(manager, log))
	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(manager, log))
	mux.HandleFunc("/health", handlers.HealthHandler(manager))

	// Stored readings
	mux.HandleFunc("/api/readings", handlers.GetReadingsHandler(repos.Readings, cfg, log))
	mux.HandleFunc("/api/readings/view", handlers.ViewReadingHandler(repos.Readings, buffer))
	mux.HandleFunc("/api/readings/delete", handlers.DeleteReadingHandler(repos.Readings, buffer, log))
	mux.HandleFunc("/api/readings/clear", handlers.ClearReadingsHandler(repos.Readings, buffer, log))
	mux.HandleFunc("/api/readings/filters", handlers.GetFiltersHandler(repos.Readings, log))
	mux.HandleFunc("/api/readings/stats", handlers.GetStatsHandler(repos.Readings, log))

	// Circuit components
	mux.HandleFunc("/api/resistors", handlers.ComponentsHandler(repos.Components, log))

	// Log endpoints
	for _, level := range logger.Levels {
		mux.HandleFunc("/logs/"+string(level), handlers.ShowLogsHandler(log, level))
		mux.HandleFunc("/logs/"+string(level)+"/clear", handlers.ClearLogsHandler(log, level))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handlers.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.CORSMiddleware(middleware.AuthMiddleware(mux))
}
