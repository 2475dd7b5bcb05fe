package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "droidbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"*:v"}, cfg.Filters)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.WaitTimeout))
	assert.Equal(t, ":22123", cfg.ListenAddr)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
adb_path: /opt/android/adb
serial: emulator-5554
filters:
  - "ActivityManager:I"
  - "*:s"
wait_timeout: 30s
listen_addr: ":9000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/android/adb", cfg.AdbPath)
	assert.Equal(t, "emulator-5554", cfg.Serial)
	assert.Equal(t, []string{"ActivityManager:I", "*:s"}, cfg.Filters)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.WaitTimeout))
	assert.Equal(t, ":9000", cfg.ListenAddr)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "serial: emulator-5556\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "emulator-5556", cfg.Serial)
	assert.Equal(t, []string{"*:v"}, cfg.Filters)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.WaitTimeout))
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, "wait_timeout: soon\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "filters: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
}
