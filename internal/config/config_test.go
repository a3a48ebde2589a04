package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "burnbook.db", cfg.DatabasePath)
	assert.Equal(t, "gpt-4", cfg.AzureOpenAIDeployment)
	assert.Equal(t, "listings", cfg.StorageContainer)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "0 */15 * * * *", cfg.SummaryRefreshSchedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("DATABASE_PATH", "/tmp/other.db")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/other.db", cfg.DatabasePath)
	assert.Equal(t, 2525, cfg.SMTPPort)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("DEBUG", "definitely")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestLoad_EmailRequiresSMTP(t *testing.T) {
	t.Setenv("NOTIFICATION_EMAIL", "team@example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP configuration is required")

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USERNAME", "mailer")
	t.Setenv("SMTP_PASSWORD", "secret")

	_, err = Load()
	assert.NoError(t, err)
}

func TestLoad_RejectsConflictingArchives(t *testing.T) {
	t.Setenv("AZURE_STORAGE_ACCOUNT", "mystorage")
	t.Setenv("ARCHIVE_DIR", "/tmp/archive")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}
