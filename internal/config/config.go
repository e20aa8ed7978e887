package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Directory the record stream files are downloaded into
	DataDir string

	// PostgreSQL connection string
	DatabaseURL string

	// How often to scan the data directory for new files
	PollInterval time.Duration

	// Port for the HTTP API (health, metrics, record files)
	APIPort int

	// Log level ( debug, info, warn, error )
	LogLevel string

	// Expected previous hash of the first file ever imported. Empty means
	// accept whatever the first file declares (bootstrap from genesis).
	BootstrapHash string

	// Parallel pipeline settings
	PipelineEnabled        bool
	PipelineWorkerCount    int
	PipelineBufferSize     int
	PipelineEnableBacklog  int
	PipelineDisableBacklog int
}

// Load returns the configuration for the importer from environment variables
func Load() *Config {
	return &Config{
		DataDir:      getEnv("DATA_DIR", "./data/recordstreams"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		PollInterval: time.Duration(getEnvAsInt("POLL_INTERVAL_MS", 500)) * time.Millisecond,
		APIPort:      getEnvAsInt("API_PORT", 8080),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		BootstrapHash: getEnv("BOOTSTRAP_HASH", ""),

		PipelineEnabled:        getEnvAsBool("PIPELINE_ENABLED", false),
		PipelineWorkerCount:    getEnvAsInt("PIPELINE_WORKER_COUNT", 0),
		PipelineBufferSize:     getEnvAsInt("PIPELINE_BUFFER_SIZE", 32),
		PipelineEnableBacklog:  getEnvAsInt("PIPELINE_ENABLE_BACKLOG", 20),
		PipelineDisableBacklog: getEnvAsInt("PIPELINE_DISABLE_BACKLOG", 5),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DataDir is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("PollInterval must be positive")
	}
	if c.PipelineDisableBacklog > c.PipelineEnableBacklog {
		return fmt.Errorf("PipelineDisableBacklog must not exceed PipelineEnableBacklog")
	}
	return nil
}

// Helper: get string from env
func getEnv(key string, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Helper: get bool from env
func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
