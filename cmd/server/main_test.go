package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[app\nport = "), 0o644))
	t.Setenv("CONFIG_FILE", path)

	err := run()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config failed")
}

func TestRunReturnsBootstrapError(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("POSTGRES_HOST", "127.0.0.1")
	t.Setenv("POSTGRES_PORT", "1")

	err := run()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap failed")
}
