package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/cupid-bot/pkg/config"
	"go.uber.org/zap/zapcore"
)

func TestCheckConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: t
  chat_id: -1001
cupid:
  url: https://cupid.example.com
  token: c
database:
  use_in_memory: true
`), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check-config", "--config", path})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Config OK: chat -1001, cupid https://cupid.example.com, memory storage\n", out.String())
}

func TestCheckConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: t\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"check-config", "-c", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestCheckConfigFromEnvironmentOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "t")
	t.Setenv("TELEGRAM_CHAT_ID", "-1002")
	t.Setenv("CUPID_TOKEN", "c")
	t.Setenv("DATABASE_URL", "postgres://bot:pw@db:5432/cupid")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check-config"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Config OK: chat -1002, cupid https://cupid-api.artemisdev.xyz, postgres storage\n", out.String())
}

func TestCheckConfigMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := newRootCmd()
	cmd.SetArgs([]string{"check-config", "--config", "config.yaml"})

	assert.Error(t, cmd.Execute())
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
