package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, `{
		"project_id": "tabchat-prod",
		"auth_api_key": "web-api-key",
		"database_file": "/tmp/tab.db",
		"online_check_interval": "5s",
		"send_timeout": "30s"
	}`)
	resetArgs(t, "-config", path)

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "tabchat-prod", cfg.ProjectID)
	assert.Equal(t, "web-api-key", cfg.AuthAPIKey)
	assert.Equal(t, "/tmp/tab.db", cfg.DatabaseFile)
	assert.Equal(t, 5*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, 30*time.Second, cfg.SendTimeout)
}

func TestParseJsonPartial(t *testing.T) {
	path := writeTempJSON(t, `{"project_id": "tabchat-dev"}`)
	resetArgs(t, "-c", path)

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, "tabchat-dev", cfg.ProjectID)
	assert.Equal(t, "tabchat.db", cfg.DatabaseFile)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func TestParseJsonNoFlag(t *testing.T) {
	resetArgs(t)

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "tabchat.db", cfg.DatabaseFile)
}

func TestParseJsonMissingFile(t *testing.T) {
	resetArgs(t, "-config", filepath.Join(t.TempDir(), "nope.json"))

	cfg := &Config{}
	require.Panics(t, func() { parseJson(cfg) })
}

func TestParseJsonMalformed(t *testing.T) {
	path := writeTempJSON(t, `{"project_id": `)
	resetArgs(t, "-config", path)

	cfg := &Config{}
	require.Panics(t, func() { parseJson(cfg) })
}
