package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

const (
	AppName = "sdprep"

	DefaultBlockSize  = 4 * 1024 * 1024
	DefaultInterface  = "eth0"
	DefaultDeviceTree = "boot/dtb/allwinner/sun50i-a64-sopine-baseboard.dtb"
	DefaultDtcPath    = "dtc"

	EnvLogLevel    = "SDPREP_LOG_LEVEL"
	EnvConfigDir   = "SDPREP_CONFIG_DIR"
	EnvDownloadDir = "SDPREP_DOWNLOAD_DIR"
	EnvBlockSize   = "SDPREP_BLOCK_SIZE"
	EnvInterface   = "SDPREP_INTERFACE"
	EnvDeviceTree  = "SDPREP_DEVICE_TREE"
	EnvDtcPath     = "SDPREP_DTC_PATH"
	EnvUseSudo     = "SDPREP_USE_SUDO"
)

type Config struct {
	ConfigDir   string
	DownloadDir string
	LogLevel    slog.Level
	BlockSize   int64
	Interface   string
	DeviceTree  string
	DtcPath     string
	// UseSudo prefixes mount, umount and eject with sudo when not running as root.
	UseSudo bool

	Help bool `json:"-"`
}

func NewDefaultConfig() *Config {
	configDir, _ := UserConfigDir()
	return &Config{
		ConfigDir:   configDir,
		DownloadDir: ".",
		LogLevel:    slog.LevelWarn,
		BlockSize:   DefaultBlockSize,
		Interface:   DefaultInterface,
		DeviceTree:  DefaultDeviceTree,
		DtcPath:     DefaultDtcPath,
		UseSudo:     true,
	}
}

func (c *Config) Load(configDir string) error {
	*c = *NewDefaultConfig()
	if configDir == "" {
		configDir, _ = UserConfigDir()
	}
	if configDir == "" {
		return fmt.Errorf("failed to determine config directory")
	}
	c.ConfigDir = configDir
	err := EnsureDir(c.ConfigDir)
	cfgPath := filepath.Join(c.ConfigDir, "config.json")
	if err != nil {
		return fmt.Errorf("failed to ensure config dir: %w", err)
	}
	if cfgFileInfo, err := os.Stat(cfgPath); err == nil && cfgFileInfo.IsDir() {
		return fmt.Errorf("config file path is a directory")
	} else if err == nil {
		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err = json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	} else if os.IsNotExist(err) {
		if err := c.Save(); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("failed to stat config path: %w", err)
	}

	return c.loadEnv()
}

// Save writes the config to disk
func (c *Config) Save() error {
	if c.ConfigDir == "" {
		return fmt.Errorf("config directory not set")
	}
	if err := EnsureDir(c.ConfigDir); err != nil {
		return fmt.Errorf("failed to ensure config dir: %w", err)
	}

	cfgPath := filepath.Join(c.ConfigDir, "config.json")
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = os.WriteFile(cfgPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		c.ConfigDir = configDir
	}
	if downloadDir := os.Getenv(EnvDownloadDir); downloadDir != "" {
		c.DownloadDir = downloadDir
	}
	if blockSize := os.Getenv(EnvBlockSize); blockSize != "" {
		size, err := ParseSizeBytes(blockSize)
		if err != nil {
			return fmt.Errorf("invalid value for BlockSize: %s", blockSize)
		}
		c.BlockSize = size
	}
	if iface := os.Getenv(EnvInterface); iface != "" {
		c.Interface = iface
	}
	if deviceTree := os.Getenv(EnvDeviceTree); deviceTree != "" {
		c.DeviceTree = deviceTree
	}
	if dtcPath := os.Getenv(EnvDtcPath); dtcPath != "" {
		c.DtcPath = dtcPath
	}
	if useSudo := os.Getenv(EnvUseSudo); useSudo != "" {
		b, err := strconv.ParseBool(useSudo)
		if err != nil {
			return fmt.Errorf("invalid value for UseSudo: %s", useSudo)
		}
		c.UseSudo = b
	}
	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		if err := c.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}
	return nil
}
