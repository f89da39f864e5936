package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultAPIToken = "dev-token"
)

// Config holds everything the server and CLI need at startup
type Config struct {
	DBDriver   string
	DBConnStr  string
	SQLitePath string

	GRPCPort string
	APIToken string
	LogLevel string

	SubmissionShutdownGrace time.Duration
	SubmissionStatusTTL     time.Duration
}

// Load reads an optional .env file, then the environment, falling back to defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: no .env file loaded, using environment variables and defaults:", err)
	}

	cfg := &Config{
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		SQLitePath: getEnv("SQLITE_PATH", "./lotwise.db"),
		GRPCPort:   getEnv("GRPC_PORT", ":8080"),
		APIToken:   getEnv("API_TOKEN", defaultAPIToken),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	cfg.DBConnStr = os.Getenv("DB_CONN_STR")
	if cfg.DBConnStr == "" {
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "lotwise"),
		)
	}

	var err error
	if cfg.SubmissionShutdownGrace, err = getEnvAsDuration("SUBMISSION_SHUTDOWN_GRACE", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SubmissionStatusTTL, err = getEnvAsDuration("SUBMISSION_STATUS_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.APIToken == defaultAPIToken {
		log.Println("WARNING: using default API_TOKEN. Set API_TOKEN for production.")
	}

	return cfg, nil
}

// Validate checks the values Load cannot default its way out of
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBConnStr == "" {
			return fmt.Errorf("DB_CONN_STR is required for the %s driver", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s driver", DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q: must be %s or %s", c.DBDriver, DriverPostgres, DriverSQLite)
	}

	if c.APIToken == "" {
		return fmt.Errorf("API_TOKEN cannot be empty")
	}
	if c.SubmissionShutdownGrace < 0 {
		return fmt.Errorf("SUBMISSION_SHUTDOWN_GRACE cannot be negative")
	}
	if c.SubmissionStatusTTL < 0 {
		return fmt.Errorf("SUBMISSION_STATUS_TTL cannot be negative")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
