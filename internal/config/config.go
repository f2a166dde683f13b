package config

import (
	"os"
	"strconv"
	"time"

	"gridprep/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database    DatabaseConfig
	DataService DataServiceConfig
	Server      ServerConfig
	Persistence PersistenceConfig
	Wizard      WizardConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// DataServiceConfig holds settings for the remote data service
type DataServiceConfig struct {
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// PersistenceConfig selects and configures the flow snapshot backend
type PersistenceConfig struct {
	Backend      string // "postgres" or "file"
	SnapshotDir  string
	SnapshotTTL  time.Duration
	WriteOnMutat bool
}

// WizardConfig holds wizard session behavior settings
type WizardConfig struct {
	SessionMaxAge   time.Duration
	SheetQueueDelay time.Duration
	DebounceWindow  time.Duration
	MetadataWorkers int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	dsConfig, err := loadDataServiceConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load data service configuration")
	}
	config.DataService = *dsConfig

	config.Server = *loadServerConfig()
	config.Persistence = *loadPersistenceConfig()
	config.Wizard = *loadWizardConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	return &DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}, nil
}

func loadDataServiceConfig() (*DataServiceConfig, error) {
	baseURL := os.Getenv("DATA_SERVICE_URL")
	if baseURL == "" {
		return nil, errors.ConfigInvalid("DATA_SERVICE_URL is required")
	}

	return &DataServiceConfig{
		BaseURL:      baseURL,
		Timeout:      getEnvDurationOrDefault("DATA_SERVICE_TIMEOUT", 60*time.Second),
		PollInterval: getEnvDurationOrDefault("TASK_POLL_INTERVAL", 2*time.Second),
		PollTimeout:  getEnvDurationOrDefault("TASK_POLL_TIMEOUT", 5*time.Minute),
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadPersistenceConfig() *PersistenceConfig {
	return &PersistenceConfig{
		Backend:      getEnvOrDefault("FLOW_PERSISTENCE", "postgres"),
		SnapshotDir:  getEnvOrDefault("FLOW_SNAPSHOT_DIR", "./data/sessions"),
		SnapshotTTL:  getEnvDurationOrDefault("FLOW_SNAPSHOT_TTL", 24*time.Hour),
		WriteOnMutat: getEnvBoolOrDefault("FLOW_WRITE_ON_MUTATION", false),
	}
}

func loadWizardConfig() *WizardConfig {
	return &WizardConfig{
		SessionMaxAge:   getEnvDurationOrDefault("WIZARD_SESSION_MAX_AGE", 30*time.Minute),
		SheetQueueDelay: getEnvDurationOrDefault("SHEET_QUEUE_DELAY", 500*time.Millisecond),
		DebounceWindow:  getEnvDurationOrDefault("DEBOUNCE_WINDOW", 1500*time.Millisecond),
		MetadataWorkers: getEnvIntOrDefault("METADATA_WORKERS", 4),
	}
}

func validateConfig(config *Config) error {
	if config.DataService.BaseURL == "" {
		return errors.ConfigInvalid("data service base URL is required")
	}
	if config.Persistence.Backend == "postgres" && config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required when FLOW_PERSISTENCE=postgres")
	}
	if config.Persistence.Backend != "postgres" && config.Persistence.Backend != "file" {
		return errors.ConfigInvalid("FLOW_PERSISTENCE must be postgres or file")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
