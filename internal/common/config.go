package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Events   EventsConfig
	OCR      OCRConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds job-store configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string
}

// EventsConfig holds event-sink configuration
type EventsConfig struct {
	RedisURL string
	Channel  string
}

// OCRConfig holds OCR engine and image-fetch configuration
type OCRConfig struct {
	Tesseract     string
	Languages     string // tesseract language set, e.g. "eng+vie"
	TessdataDir   string
	FetchTimeout  time.Duration
	MaxImageBytes int64
}

// WorkerConfig holds processing queue configuration
type WorkerConfig struct {
	Workers   int
	QueueSize int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Events: EventsConfig{
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
			Channel:  getEnv("EVENTS_CHANNEL", "ocr.completed"),
		},
		OCR: OCRConfig{
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			Languages:     getEnv("TESSERACT_LANG", "eng+vie"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			FetchTimeout:  getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
			MaxImageBytes: getEnvAsInt64("MAX_IMAGE_BYTES", 20<<20),
		},
		Worker: WorkerConfig{
			Workers:   getEnvAsInt("OCR_WORKERS", 4),
			QueueSize: getEnvAsInt("OCR_QUEUE_SIZE", 256),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Events.RedisURL == "" {
		return NewAppError("CONFIG_ERROR", "REDIS_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Worker.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "OCR_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
