package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfig_TokenMode(t *testing.T) {
	path := writeConfig(t, `
environment: sandbox
topic: com.tinywide.messenger
token:
  key_file: /keys/AuthKey_ABCDE12345.p8
  key_id: ABCDE12345
  team_id: TEAM0000AA
  refresh_interval: 30m
`)
	cfg, err := LoadConfig(path, testLogger())
	require.NoError(t, err)

	assert.True(t, cfg.Sandbox)
	assert.Equal(t, "com.tinywide.messenger", cfg.Topic)
	assert.Equal(t, "ABCDE12345", cfg.TokenKeyID)
	assert.Equal(t, "30m0s", cfg.TokenRefreshInterval.String())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
topic: com.tinywide.messenger
token:
  key_file: /keys/AuthKey_ABCDE12345.p8
  key_id: ABCDE12345
  team_id: TEAM0000AA
`)
	t.Setenv("APNS_ENVIRONMENT", "sandbox")
	t.Setenv("APNS_KEY_ID", "FGHIJ67890")

	cfg, err := LoadConfig(path, testLogger())
	require.NoError(t, err)

	assert.True(t, cfg.Sandbox)
	assert.Equal(t, "FGHIJ67890", cfg.TokenKeyID)
	assert.Equal(t, "TEAM0000AA", cfg.TokenTeamID)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("no identity", func(t *testing.T) {
		_, err := LoadConfig("", testLogger())
		assert.ErrorContains(t, err, "no identity configured")
	})

	t.Run("both identities", func(t *testing.T) {
		path := writeConfig(t, `
topic: com.tinywide.messenger
token:
  key_file: /keys/key.p8
  key_id: ABCDE12345
  team_id: TEAM0000AA
certificate:
  p12_file: /keys/push.p12
`)
		_, err := LoadConfig(path, testLogger())
		assert.ErrorContains(t, err, "not both")
	})

	t.Run("incomplete token identity", func(t *testing.T) {
		path := writeConfig(t, `
topic: com.tinywide.messenger
token:
  key_file: /keys/key.p8
`)
		_, err := LoadConfig(path, testLogger())
		assert.ErrorContains(t, err, "key_id")
	})

	t.Run("token mode requires topic", func(t *testing.T) {
		path := writeConfig(t, `
token:
  key_file: /keys/key.p8
  key_id: ABCDE12345
  team_id: TEAM0000AA
`)
		_, err := LoadConfig(path, testLogger())
		assert.ErrorContains(t, err, "topic")
	})

	t.Run("certificate mode may omit topic", func(t *testing.T) {
		path := writeConfig(t, `
certificate:
  pem_file: /keys/push.pem
`)
		cfg, err := LoadConfig(path, testLogger())
		require.NoError(t, err)
		assert.Empty(t, cfg.Topic)
	})
}
