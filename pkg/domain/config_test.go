package domain

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	require.NotNil(t, config)
	assert.NotEmpty(t, config.ConfigDir)
	assert.Equal(t, slog.LevelWarn, config.LogLevel)
	assert.Equal(t, int64(DefaultBlockSize), config.BlockSize)
	assert.Equal(t, DefaultInterface, config.Interface)
	assert.Equal(t, DefaultDeviceTree, config.DeviceTree)
	assert.Equal(t, DefaultDtcPath, config.DtcPath)
	assert.True(t, config.UseSudo)
	assert.False(t, config.Help)
}

func TestConfigLoad(t *testing.T) {
	t.Run("creates config file if not exists", func(t *testing.T) {
		tmpDir := t.TempDir()

		config := &Config{}
		require.NoError(t, config.Load(tmpDir))

		assert.FileExists(t, filepath.Join(tmpDir, "config.json"))
		assert.Equal(t, tmpDir, config.ConfigDir)
		assert.Equal(t, int64(DefaultBlockSize), config.BlockSize)
	})

	t.Run("loads existing config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		custom := &Config{
			ConfigDir:   tmpDir,
			DownloadDir: "/srv/images",
			LogLevel:    slog.LevelDebug,
			BlockSize:   1 << 20,
			Interface:   "end0",
			DeviceTree:  "boot/custom.dtb",
			DtcPath:     "/opt/dtc",
			UseSudo:     false,
		}
		data, err := json.MarshalIndent(custom, "", "  ")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.json"), data, 0600))

		config := &Config{}
		require.NoError(t, config.Load(tmpDir))

		assert.Equal(t, "/srv/images", config.DownloadDir)
		assert.Equal(t, slog.LevelDebug, config.LogLevel)
		assert.Equal(t, int64(1<<20), config.BlockSize)
		assert.Equal(t, "end0", config.Interface)
		assert.Equal(t, "boot/custom.dtb", config.DeviceTree)
		assert.Equal(t, "/opt/dtc", config.DtcPath)
		assert.False(t, config.UseSudo)
	})

	t.Run("returns error if config path is a directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "config.json"), 0755))

		err := (&Config{}).Load(tmpDir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is a directory")
	})

	t.Run("returns error for invalid json", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte("{not json"), 0600))

		err := (&Config{}).Load(tmpDir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshal")
	})
}

func TestConfigLoadEnv(t *testing.T) {
	t.Run("loads all environment variables", func(t *testing.T) {
		t.Setenv(EnvDownloadDir, "/test/downloads")
		t.Setenv(EnvBlockSize, "1m")
		t.Setenv(EnvInterface, "eth1")
		t.Setenv(EnvDeviceTree, "boot/other.dtb")
		t.Setenv(EnvDtcPath, "/usr/local/bin/dtc")
		t.Setenv(EnvUseSudo, "false")
		t.Setenv(EnvLogLevel, "DEBUG")

		config := NewDefaultConfig()
		require.NoError(t, config.loadEnv())

		assert.Equal(t, "/test/downloads", config.DownloadDir)
		assert.Equal(t, int64(1<<20), config.BlockSize)
		assert.Equal(t, "eth1", config.Interface)
		assert.Equal(t, "boot/other.dtb", config.DeviceTree)
		assert.Equal(t, "/usr/local/bin/dtc", config.DtcPath)
		assert.False(t, config.UseSudo)
		assert.Equal(t, slog.LevelDebug, config.LogLevel)
	})

	t.Run("rejects invalid block size", func(t *testing.T) {
		t.Setenv(EnvBlockSize, "lots")
		err := NewDefaultConfig().loadEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BlockSize")
	})

	t.Run("rejects invalid sudo flag", func(t *testing.T) {
		t.Setenv(EnvUseSudo, "maybe")
		require.Error(t, NewDefaultConfig().loadEnv())
	})

	t.Run("rejects invalid log level", func(t *testing.T) {
		t.Setenv(EnvLogLevel, "LOUD")
		require.Error(t, NewDefaultConfig().loadEnv())
	})
}

func TestConfigSave(t *testing.T) {
	t.Run("round trips through disk", func(t *testing.T) {
		tmpDir := t.TempDir()
		config := NewDefaultConfig()
		config.ConfigDir = tmpDir
		config.Interface = "wlan0"
		require.NoError(t, config.Save())

		loaded := &Config{}
		require.NoError(t, loaded.Load(tmpDir))
		assert.Equal(t, "wlan0", loaded.Interface)
	})

	t.Run("help is never persisted", func(t *testing.T) {
		tmpDir := t.TempDir()
		config := NewDefaultConfig()
		config.ConfigDir = tmpDir
		config.Help = true
		require.NoError(t, config.Save())

		data, err := os.ReadFile(filepath.Join(tmpDir, "config.json"))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "Help")
	})

	t.Run("fails without config dir", func(t *testing.T) {
		require.Error(t, (&Config{}).Save())
	})
}
