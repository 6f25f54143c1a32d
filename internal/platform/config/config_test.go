package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "museion.events", cfg.KafkaTopic)
	assert.Equal(t, "admin:platform", cfg.Admin().String())
	assert.Equal(t, "treasury:platform", cfg.Treasury().String())
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "museion.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"addr: \":9090\"\n"+
			"adminAddress: \"admin:staging\"\n"+
			"kafkaBrokers:\n  - \"localhost:9092\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "admin:staging", cfg.AdminAddress)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	// Untouched values keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "museion.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\n"), 0o600))

	t.Setenv("MUSEION_ADDR", ":7070")
	t.Setenv("MUSEION_POSTGRES_DSN", "postgres://museion@localhost/museion")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "postgres://museion@localhost/museion", cfg.PostgresDSN)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("rejects malformed admin address", func(t *testing.T) {
		t.Setenv("MUSEION_ADMIN_ADDRESS", "not a valid address!")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "admin address")
	})

	t.Run("rejects brokers without topic", func(t *testing.T) {
		t.Setenv("MUSEION_KAFKA_BROKERS", "localhost:9092")
		t.Setenv("MUSEION_KAFKA_TOPIC", "")
		_, err := Load("")
		require.Error(t, err)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}
