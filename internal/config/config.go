// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	TelegramToken string
	OpsPort       string
	DBPath        string
	DatasetPath   string
	SessionTTL    time.Duration

	Ollama  OllamaConfig
	ChatLog ChatLogConfig
}

// OllamaConfig controls the route generation model call.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float32
	// Timeout bounds one generation call; zero means no deadline.
	Timeout time.Duration
}

// ChatLogConfig controls NDJSON dialogue logging.
type ChatLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CHATLOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		TelegramToken: getEnv("TELEGRAM_BOT_KEY", ""),
		OpsPort:       getEnv("OPS_PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/routes.db"),
		DatasetPath:   getEnv("DATASET_PATH", "./data/cultural_objects_dataset_nn.xlsx"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 60*time.Minute),
		Ollama: OllamaConfig{
			BaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
			Model:       getEnv("OLLAMA_MODEL", "mistral"),
			Temperature: getEnvFloat32("OLLAMA_TEMPERATURE", 0.7),
			Timeout:     getEnvDuration("GENERATION_TIMEOUT", 0),
		},
		ChatLog: ChatLogConfig{
			Enabled:       getEnvBool("CHATLOG_ENABLED", true),
			Dir:           getEnv("CHATLOG_DIR", "./data/logs/dialogues"),
			GlobalEnabled: getEnvBool("CHATLOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CHATLOG_GLOBAL_PATH", "./data/logs/dialogues/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_KEY cannot be empty")
	}
	if c.OpsPort == "" {
		return fmt.Errorf("OPS_PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("OLLAMA_BASE_URL cannot be empty")
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("OLLAMA_MODEL cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.ChatLog.Enabled && c.ChatLog.Dir == "" {
		return fmt.Errorf("CHATLOG_DIR cannot be empty")
	}
	if c.ChatLog.GlobalEnabled && c.ChatLog.GlobalPath == "" {
		return fmt.Errorf("CHATLOG_GLOBAL_PATH cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
