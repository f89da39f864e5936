package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_DRIVER", "DB_CONN_STR", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"SQLITE_PATH", "GRPC_PORT", "API_TOKEN", "LOG_LEVEL",
		"SUBMISSION_SHUTDOWN_GRACE", "SUBMISSION_STATUS_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=lotwise sslmode=disable", cfg.DBConnStr)
	assert.Equal(t, "./lotwise.db", cfg.SQLitePath)
	assert.Equal(t, ":8080", cfg.GRPCPort)
	assert.Equal(t, "dev-token", cfg.APIToken)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.SubmissionShutdownGrace)
	assert.Equal(t, 10*time.Minute, cfg.SubmissionStatusTTL)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/lots.db")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("GRPC_PORT", ":9090")
	t.Setenv("API_TOKEN", "secret")
	t.Setenv("SUBMISSION_SHUTDOWN_GRACE", "250ms")
	t.Setenv("SUBMISSION_STATUS_TTL", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "/tmp/lots.db", cfg.SQLitePath)
	assert.Contains(t, cfg.DBConnStr, "host=db.internal")
	assert.Equal(t, ":9090", cfg.GRPCPort)
	assert.Equal(t, "secret", cfg.APIToken)
	assert.Equal(t, 250*time.Millisecond, cfg.SubmissionShutdownGrace)
	assert.Equal(t, time.Duration(0), cfg.SubmissionStatusTTL)
}

func TestLoad_ConnStrWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_CONN_STR", "postgres://u:p@h/db")
	t.Setenv("DB_HOST", "ignored")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/db", cfg.DBConnStr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unknown driver", "DB_DRIVER", "mysql", "unsupported DB_DRIVER"},
		{"bad grace", "SUBMISSION_SHUTDOWN_GRACE", "soon", "invalid SUBMISSION_SHUTDOWN_GRACE"},
		{"bad ttl", "SUBMISSION_STATUS_TTL", "10 minutes", "invalid SUBMISSION_STATUS_TTL"},
		{"negative ttl", "SUBMISSION_STATUS_TTL", "-1s", "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
