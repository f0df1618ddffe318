package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", "")
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_API_URL", "http://auth.local/")
	t.Setenv("APPLICATION_API_URL", "http://apps.local")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "NITT", cfg.Institution.Code)
	assert.Equal(t, "nitt.edu", cfg.Institution.Domain)
	assert.Equal(t, "staged", cfg.Wizard.FilePolicy)
	assert.Equal(t, 3*time.Second, cfg.Wizard.NoticeTTL)
	assert.Equal(t, devSigningKey, cfg.Token.SigningKey)
	assert.Equal(t, "http://auth.local", cfg.AuthAPI.BaseURL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("WIZARD_FILE_POLICY", "legacy-inline-photo")
	t.Setenv("WIZARD_NOTICE_TTL", "5s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("INSTITUTION_EMAIL_DOMAIN", "NITT.EDU")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "legacy-inline-photo", cfg.Wizard.FilePolicy)
	assert.Equal(t, 5*time.Second, cfg.Wizard.NoticeTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "nitt.edu", cfg.Institution.Domain)
}

func TestFromEnvProductionRequiresExplicitSettings(t *testing.T) {
	setRequired(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SIGNING_KEY", "s3cret")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WIZARD_FILE_POLICY")

	t.Setenv("WIZARD_FILE_POLICY", "staged")
	t.Setenv("JWT_SIGNING_KEY", "")
	_, err = FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
}

func TestFromEnvRejectsBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_TTL", "two hours")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_TTL")
}

func TestFromEnvLoadsDotEnv(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "wizard.env")
	require.NoError(t, os.WriteFile(path, []byte("INSTITUTION_CODE=NITK\nWIZARD_TOPOLOGY=legacy\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("INSTITUTION_CODE", "")
	t.Setenv("WIZARD_TOPOLOGY", "")
	// godotenv never overrides variables that are already set, even empty.
	os.Unsetenv("INSTITUTION_CODE")
	os.Unsetenv("WIZARD_TOPOLOGY")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "NITK", cfg.Institution.Code)
	assert.Equal(t, "legacy", cfg.Wizard.Topology)
}

func TestFromEnvMissingExplicitFile(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	_, err := FromEnv()
	require.Error(t, err)
}
