package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "TOKEN": "secret",
  "DEFAULT_COUNT_CHANNEL": "counting",
  "RESET_ON_INCORRECT": false,
  "SKIP_LEADERBOARD_FOR_SERVERS": [123456789012345678, "42"]
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, "counting", cfg.DefaultCountChannel)
	assert.False(t, cfg.ResetOnIncorrect)
	assert.False(t, cfg.HideFromLeaderboard)
	assert.Equal(t, GuildIDs{"123456789012345678", "42"}, cfg.SkipLeaderboard)

	// Untouched keys keep their defaults
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, ":8080", cfg.MetricsAddress)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
TOKEN: secret
DEFAULT_COUNT_CHANNEL: numbers
HIDE_FROM_LEADERBOARD: true
WORKERS: 2
REQUEST_TIMEOUT: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "numbers", cfg.DefaultCountChannel)
	assert.True(t, cfg.ResetOnIncorrect)
	assert.True(t, cfg.HideFromLeaderboard)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "config.json", `{"TOKEN": "from-file", "DEFAULT_COUNT_CHANNEL": "counting"}`)
	t.Setenv("COUNTER_BOT_TOKEN", "from-env")
	t.Setenv("COUNTER_BOT_SKIP_LEADERBOARD_FOR_SERVERS", "1,2")
	t.Setenv("COUNTER_BOT_REQUEST_TIMEOUT", "1500ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "counting", cfg.DefaultCountChannel)
	assert.Equal(t, GuildIDs{"1", "2"}, cfg.SkipLeaderboard)
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("COUNTER_BOT_TOKEN", "secret")
	t.Setenv("COUNTER_BOT_DEFAULT_COUNT_CHANNEL", "counting")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Token)
	assert.True(t, cfg.ResetOnIncorrect)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "missing token", content: `{"DEFAULT_COUNT_CHANNEL": "counting"}`, wantErr: ErrMissingToken},
		{name: "missing channel", content: `{"TOKEN": "secret"}`, wantErr: ErrMissingDefaultChannel},
		{name: "malformed", content: `{"TOKEN": [`},
		{name: "skip list not a list", content: `{"TOKEN": "t", "DEFAULT_COUNT_CHANNEL": "c", "SKIP_LEADERBOARD_FOR_SERVERS": 5}`},
		{name: "no workers", content: `{"TOKEN": "t", "DEFAULT_COUNT_CHANNEL": "c", "WORKERS": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.json", tt.content))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultsAndExcluded(t *testing.T) {
	cfg := Default()
	cfg.DefaultCountChannel = "counting"
	cfg.HideFromLeaderboard = true
	cfg.SkipLeaderboard = GuildIDs{"1", "2"}

	d := cfg.Defaults()
	assert.Equal(t, "counting", d.CountingChannel)
	assert.True(t, d.ResetOnIncorrect)
	assert.True(t, d.HiddenFromLeaderboard)

	assert.Equal(t, map[string]struct{}{"1": {}, "2": {}}, cfg.Excluded())
}
