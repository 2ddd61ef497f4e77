package commands

import (
	"os"
	"path/filepath"

	"github.com/secemp9/jari/internal/config"
	"github.com/secemp9/jari/internal/core/query"
	"github.com/secemp9/jari/internal/core/store"
	"github.com/secemp9/jari/internal/core/todosvc"
)

// Flags holds the parsed global CLI flags plus the services opened from
// them in the root command's Before hook, shared by every subcommand's
// Action.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Agent      string

	// Config is loaded in the Before hook and available to all commands.
	Config *config.Config

	Store *store.Store
	Todos *todosvc.Service
	Query *query.Service
}

// DefaultConfigPath returns $JARI_CONFIG, or ~/.config/jari/config.yaml.
func DefaultConfigPath() string {
	if p := os.Getenv("JARI_CONFIG"); p != "" {
		return p
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "jari", "config.yaml")
}

// DefaultDataDir returns $JARI_DB, or a fixed per-user location.
func DefaultDataDir() string {
	if p := os.Getenv("JARI_DB"); p != "" {
		return p
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "jari")
}

// DefaultAgent returns $JARI_AGENT, or "anonymous".
func DefaultAgent() string {
	if a := os.Getenv("JARI_AGENT"); a != "" {
		return a
	}
	return "anonymous"
}
