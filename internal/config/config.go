package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultEngineURL is the hosted conversational engine used when ENGINE_URL is unset.
	DefaultEngineURL = "https://eryai-engine.vercel.app"
	// DefaultSlug identifies the pilot campaign on the engine side.
	DefaultSlug = "eldercare-pilot"
)

// Config aggregates every setting the binary needs.
type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Storage StorageConfig
	Log     LogConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	engine, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Engine: engine, Storage: storage, Log: loadLogConfig()}, nil
}

// ServerConfig describes the local HTTP surface.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	addr, err := ParseAddr(os.Getenv("PORT"))
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{Addr: addr}, nil
}

// ParseAddr turns a PORT style value into a listen address. Empty means ":8080".
func ParseAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are passed through as-is.
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid PORT value %q: %w", port, err)
	}

	return ":" + port, nil
}

// EngineConfig describes the remote chat engine.
type EngineConfig struct {
	BaseURL string
	Slug    string
	// Timeout is zero when no deadline should be applied to engine calls.
	Timeout time.Duration
}

func loadEngineConfig() (EngineConfig, error) {
	timeout, err := parseOptionalIntEnv("ENGINE_TIMEOUT")
	if err != nil {
		return EngineConfig{}, err
	}

	var d time.Duration
	if timeout != nil {
		if *timeout < 0 {
			return EngineConfig{}, fmt.Errorf("invalid ENGINE_TIMEOUT value %d: must not be negative", *timeout)
		}
		d = time.Duration(*timeout) * time.Second
	}

	baseURL := getEnvOrDefault("ENGINE_URL", getEnvOrDefault("NEXT_PUBLIC_ENGINE_URL", DefaultEngineURL))

	return EngineConfig{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Slug:    getEnvOrDefault("MIMRE_SLUG", DefaultSlug),
		Timeout: d,
	}, nil
}

// StorageConfig selects where the selected companion and session id live.
type StorageConfig struct {
	Path      string
	Ephemeral bool
}

func loadStorageConfig() (StorageConfig, error) {
	ephemeral, err := parseBoolEnv("MIMRE_EPHEMERAL", false)
	if err != nil {
		return StorageConfig{}, err
	}
	return StorageConfig{
		Path:      getEnvOrDefault("MIMRE_DATA_PATH", "mimre.db"),
		Ephemeral: ephemeral,
	}, nil
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
	}
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
