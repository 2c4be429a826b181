package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultModel is used when neither the environment nor a stored session
// names one.
const DefaultModel = "gemini-3-flash-preview"

// Config aggregates settings for both binaries.
type Config struct {
	Server ServerConfig
	Client ClientConfig
	Log    LogConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	log, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Client: client, Log: log}, nil
}

// ServerConfig describes the llorod HTTP server and its agent subprocess.
type ServerConfig struct {
	Addr      string
	Model     string
	GeminiBin string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "6363"
	}

	addr := port
	if !strings.Contains(port, ":") {
		// Allow both ":6363" and a bare port number.
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	return ServerConfig{
		Addr:      addr,
		Model:     getEnvOrDefault("LLORO_MODEL", DefaultModel),
		GeminiBin: getEnvOrDefault("LLORO_GEMINI_BIN", "gemini"),
	}, nil
}

// ClientConfig describes how the lloro CLI reaches its backend and where
// session state lives.
type ClientConfig struct {
	BackendURL    string
	StoragePath   string
	Model         string
	HealthTimeout time.Duration
}

func loadClientConfig() (ClientConfig, error) {
	timeoutSecs, err := parseOptionalIntEnv("LLORO_HEALTH_TIMEOUT")
	if err != nil {
		return ClientConfig{}, err
	}
	healthTimeout := 5 * time.Second
	if timeoutSecs != nil {
		if *timeoutSecs < 1 {
			return ClientConfig{}, fmt.Errorf("LLORO_HEALTH_TIMEOUT must be at least 1 second")
		}
		healthTimeout = time.Duration(*timeoutSecs) * time.Second
	}

	storagePath := strings.TrimSpace(os.Getenv("LLORO_STORAGE"))
	if storagePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("resolve home dir: %w", err)
		}
		storagePath = filepath.Join(home, ".lloro", "lloro.db")
	}

	return ClientConfig{
		BackendURL:    getEnvOrDefault("LLORO_BACKEND_URL", "http://localhost:6363"),
		StoragePath:   storagePath,
		Model:         getEnvOrDefault("LLORO_MODEL", DefaultModel),
		HealthTimeout: healthTimeout,
	}, nil
}

// LogConfig describes logger verbosity and encoding.
type LogConfig struct {
	Level       string
	Development bool
}

func loadLogConfig() (LogConfig, error) {
	dev, err := parseBoolEnv("LLORO_LOG_DEV", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:       getEnvOrDefault("LLORO_LOG_LEVEL", "info"),
		Development: dev,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
