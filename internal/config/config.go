package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  int
	Password              string
	ModelPath             string
	ModelInputWidth       int     // Szerokość wejścia modelu (Mask R-CNN: 1333)
	ModelInputHeight      int     // Wysokość wejścia modelu (Mask R-CNN: 800)
	DetectionThreshold    float64 // Minimalna pewność detekcji paska
	ImageDirectory        string
	DatabasePath          string
	ImageBufferLimit      int // Ile zdjęć na źródło trzymać w buforze
	ImageFlushInterval    int // Co ile sekund zapisywać bufor na dysk
	ThumbnailSize         uint
	ProcessingWorkers     int // Liczba worker threads do przetwarzania
	QueueSize             int
	MaxImageDirectorySize int64 // Maksymalny rozmiar katalogu z obrazami w GB
	LogDirectory          string
	FallbackResistance    float64 // Wartość gdy model nie znajdzie żadnego paska
}

// Load reads an optional .env file and builds the Config from the environment.
func Load() *Config {
	// Brak pliku .env nie jest błędem - zmienne mogą pochodzić ze środowiska
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		Password:              getEnv("PASSWORD", "resistor"),
		ModelPath:             getEnv("MODEL_PATH", filepath.Join(".", "model", "resistor_value_model.onnx")),
		ModelInputWidth:       getEnvAsInt("MODEL_INPUT_WIDTH", 1333),
		ModelInputHeight:      getEnvAsInt("MODEL_INPUT_HEIGHT", 800),
		DetectionThreshold:    getEnvAsFloat("DETECTION_THRESHOLD", 0.05),
		ImageDirectory:        getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		DatabasePath:          getEnv("DB_PATH", filepath.Join(".", "data", "readings.db")),
		ImageBufferLimit:      getEnvAsInt("BUFFER_LIMIT", 10),
		ImageFlushInterval:    getEnvAsInt("FLUSH_INTERVAL", 30),
		ThumbnailSize:         uint(getEnvAsInt("THUMBNAIL_SIZE", 160)),
		ProcessingWorkers:     getEnvAsInt("PROCESSING_WORKERS", 2),
		QueueSize:             getEnvAsInt("QUEUE_SIZE", 32),
		MaxImageDirectorySize: getEnvAsInt64("MAX_IMAGE_DIRECTORY_SIZE", 4),
		LogDirectory:          getEnv("LOG_DIR", filepath.Join(".", "logs")),
		FallbackResistance:    getEnvAsFloat("FALLBACK_RESISTANCE", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
