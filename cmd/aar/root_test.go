package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args, capturing stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "aar ")
	assert.Contains(t, out, "commit")
}

func TestInitCommandCreatesLayout(t *testing.T) {
	home := filepath.Join(t.TempDir(), "aar-home")

	out, err := execute(t, "init", "--home", home)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default config")
	assert.FileExists(t, filepath.Join(home, "config.yaml"))
	assert.DirExists(t, filepath.Join(home, "reports"))

	out, err = execute(t, "init", "--home", home)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	home := filepath.Join(t.TempDir(), "aar-home")
	_, err := execute(t, "init", "--home", home)
	require.NoError(t, err)

	out, err := execute(t, "config", "show", "--home", home)
	require.NoError(t, err)
	assert.Contains(t, out, "scheduler:")
	assert.Contains(t, out, "workers:")
}

func TestDemoRunsEndToEnd(t *testing.T) {
	home := filepath.Join(t.TempDir(), "aar-home")
	_, err := execute(t, "init", "--home", home)
	require.NoError(t, err)

	out, err := execute(t, "demo", "--home", home, "--records", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Session Analysis Report")
	assert.Contains(t, out, "latency")
	assert.Contains(t, out, "safety")
}
