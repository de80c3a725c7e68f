// Package config holds the on-disk configuration for the bridge tools.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// SocketConfig controls where the bridge places its domain socket.
type SocketConfig struct {
	// Dir is the directory for generated socket files. Empty means os.TempDir().
	Dir string `json:"dir,omitempty"`
	// Prefix is the leading component of generated socket file names.
	Prefix string `json:"prefix"`
	// MaxConnections limits concurrent clients accepted by the server.
	// Zero or negative means unlimited.
	MaxConnections int `json:"max_connections,omitempty"`
}

// CompanionConfig describes the external MCP companion process that
// connects back over the bridge socket.
type CompanionConfig struct {
	// Name is the server key written into .mcp.json.
	Name string `json:"name"`
	// Exec is the command line used to launch the companion.
	Exec []string `json:"exec,omitempty"`
	// SocketEnv is the environment variable carrying the socket path.
	SocketEnv string `json:"socket_env"`
}

// Config represents application configuration
type Config struct {
	Socket    SocketConfig    `json:"socket"`
	Companion CompanionConfig `json:"companion"`
	LogLevel  string          `json:"log_level"` // debug, info, warn, error, none
	LogPath   string          `json:"log_path,omitempty"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "testbridge")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "testbridge")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "testbridge")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "testbridge")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "testbridge")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "testbridge")
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Socket: SocketConfig{
			Prefix: "testbridge",
		},
		Companion: CompanionConfig{
			Name:      "testbridge",
			SocketEnv: "TESTBRIDGE_SOCKET",
		},
		LogLevel: "info",
		LogPath:  filepath.Join(defaultStateDir(), "testbridge.log"),
	}
}

// Load loads configuration from file, falling back to defaults for any
// field the file does not set. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	if config.Socket.Prefix == "" {
		config.Socket.Prefix = "testbridge"
	}
	if config.Companion.Name == "" {
		config.Companion.Name = "testbridge"
	}
	if config.Companion.SocketEnv == "" {
		config.Companion.SocketEnv = "TESTBRIDGE_SOCKET"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	return config, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// SocketDir returns the directory for generated socket files.
func (c *Config) SocketDir() string {
	if c.Socket.Dir != "" {
		return c.Socket.Dir
	}
	return os.TempDir()
}
