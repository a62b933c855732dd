package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/backoffice/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Overrides applied on top of the config file
	APIURL   string
	APIToken string
	Locale   string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// Apply copies non-empty overrides onto cfg.
func (f *Flags) Apply(cfg *config.Config) {
	if f.APIURL != "" {
		cfg.API.BaseURL = f.APIURL
	}
	if f.APIToken != "" {
		cfg.API.Token = f.APIToken
	}
	if f.Locale != "" {
		cfg.Locale = f.Locale
	}
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "backoffice", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "backoffice")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/backoffice/backoffice.log
// On Linux: $XDG_STATE_HOME/backoffice/backoffice.log
func DefaultLogFile() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "backoffice", "backoffice.log")
	}

	home, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "backoffice", "backoffice.log")
	}
	return filepath.Join(home, ".local", "state", "backoffice", "backoffice.log")
}
