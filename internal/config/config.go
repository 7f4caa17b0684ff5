// Package config manages YAML-based configuration and CLI flags for the
// cratehub server.
package config

import (
	"flag"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the server.
type Config struct {
	// RegistryRoot is the directory holding <crate>/<version>/release.json
	// descriptors and the stored source trees/archives.
	RegistryRoot string `yaml:"registry_root"`

	Port  int  `yaml:"port"`
	Watch bool `yaml:"watch"`

	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file,omitempty"`
	LogMaxSize    int    `yaml:"log_max_size,omitempty"`
	LogMaxBackups int    `yaml:"log_max_backups,omitempty"`
	LogCompress   bool   `yaml:"log_compress,omitempty"`

	// Internal: path the config was loaded from
	configPath string
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		RegistryRoot: "./registry",
		Port:         8080,
		Watch:        true,
		LogLevel:     "info",
		LogMaxSize:   50,
	}
}

// GetConfigDir returns the config directory path.
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/cratehub"
	}
	return filepath.Join(home, ".config", "cratehub")
}

// GetConfigPath returns the full path to the config file.
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load loads configuration from file and command line flags.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Define command line flags with sentinel values to detect if set
	root := flag.String("root", "", "Registry storage root directory")
	port := flag.Int("port", 0, "HTTP server port")
	watch := flag.Bool("watch", true, "Reload the index when the registry root changes")
	logLevel := flag.String("log-level", "", "Log level (debug/info/warn/error)")
	logFile := flag.String("log-file", "", "Log file path (stdout if empty)")
	configFile := flag.String("config", "", "Configuration file path")

	flag.StringVar(root, "r", "", "Registry storage root directory (shorthand)")

	flag.Parse()

	// Determine config file path
	var cfgPath string
	if *configFile != "" {
		cfgPath = *configFile
	} else {
		// Try ~/.config/cratehub/config.yaml first
		globalConfig := GetConfigPath()
		if _, err := os.Stat(globalConfig); err == nil {
			cfgPath = globalConfig
		} else {
			// Fall back to local cratehub.yaml
			if _, err := os.Stat("cratehub.yaml"); err == nil {
				cfgPath = "cratehub.yaml"
			}
		}
	}

	if cfgPath != "" {
		if err := cfg.loadFromFile(cfgPath); err != nil && *configFile != "" {
			// Only return error if user explicitly specified config file
			return nil, err
		}
		cfg.configPath = cfgPath
	}

	// Command line flags override config file (only if explicitly set)
	if *root != "" {
		cfg.RegistryRoot = *root
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	cfg.Watch = *watch

	// Resolve the registry root to an absolute path
	if absRoot, err := filepath.Abs(cfg.RegistryRoot); err == nil {
		cfg.RegistryRoot = absRoot
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// GetConfigFilePath returns the path to the config file, if one was loaded.
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}
