package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	// Persistence
	MongoURI      string
	MongoDatabase string

	// Detection model
	ModelRemoteURL      string
	ModelCachePath      string
	ModelLocalPath      string
	ONNXSharedLibPath   string
	ModelInitTimeout    time.Duration
	ConfidenceThreshold float64
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB

		MongoURI:      getEnvOrDefault("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "flower_classifications"),

		ModelRemoteURL:      os.Getenv("MODEL_REMOTE_URL"),
		ModelCachePath:      getEnvOrDefault("MODEL_CACHE_PATH", filepath.Join(os.TempDir(), "flower-yolo.onnx")),
		ModelLocalPath:      getEnvOrDefault("MODEL_LOCAL_PATH", "models/flower-yolo.onnx"),
		ONNXSharedLibPath:   os.Getenv("ONNXRUNTIME_SHARED_LIB"),
		ModelInitTimeout:    parseDurationOrDefault("MODEL_INIT_TIMEOUT", 60*time.Second),
		ConfidenceThreshold: parseFloatOrDefault("CONFIDENCE_THRESHOLD", 0.25),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ModelInitTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, model_init=%s)",
			cfg.RequestTimeout, cfg.ModelInitTimeout)
	}
	if cfg.ConfidenceThreshold <= 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("CONFIDENCE_THRESHOLD must be in (0,1] (got %g)", cfg.ConfidenceThreshold)
	}
	if strings.TrimSpace(cfg.MongoDatabase) == "" {
		return nil, fmt.Errorf("MONGODB_DATABASE must not be empty")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
