package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type BackendConfig struct {
	URL          string `toml:"url"`
	DefaultModel string `toml:"default_model"`
}

type UserConfig struct {
	Backend             BackendConfig `toml:"backend"`
	DefaultMatter       string        `toml:"default_matter,omitempty"`
	DefaultSystemPrompt string        `toml:"default_system_prompt,omitempty"`
	UseRAG              bool          `toml:"use_rag"`
}

type Config struct {
	DataDirectory       string
	BackendURL          string
	DefaultModel        string
	DefaultMatter       string
	DefaultSystemPrompt string
	UseRAG              bool
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) Model() string {
	return c.DefaultModel
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("LEXIO_BACKEND_URL"); url != "" {
		c.BackendURL = url
	}
	if model := os.Getenv("LEXIO_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if dataDir := os.Getenv("LEXIO_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
}

func CheckDebug() bool {
	debug := os.Getenv("LEXIO_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: debug output can include request URLs and matter identifiers
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (LEXIO_DEBUG=%s) ===", os.Getenv("LEXIO_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

func HasAllEnvVars() bool {
	return os.Getenv("LEXIO_BACKEND_URL") != "" &&
		os.Getenv("LEXIO_MODEL") != "" &&
		os.Getenv("LEXIO_DATA_DIR") != ""
}

func HasAnyEnvVar() bool {
	return os.Getenv("LEXIO_BACKEND_URL") != "" ||
		os.Getenv("LEXIO_MODEL") != "" ||
		os.Getenv("LEXIO_DATA_DIR") != ""
}

func GetMissingEnvVar() string {
	if os.Getenv("LEXIO_BACKEND_URL") == "" {
		return "LEXIO_BACKEND_URL"
	}
	if os.Getenv("LEXIO_MODEL") == "" {
		return "LEXIO_MODEL"
	}
	if os.Getenv("LEXIO_DATA_DIR") == "" {
		return "LEXIO_DATA_DIR"
	}
	return ""
}

func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory: "~/.local/share/lexio",
		BackendURL:    "http://localhost:8000",
		DefaultModel:  "gpt-4o-mini",
		UseRAG:        true,
	}

	settingsPath := GetSettingsFilePath()
	settingsExist := FileExists(settingsPath)

	if settingsExist || !HasAllEnvVars() {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		cfg.DataDirectory = systemCfg.DataDirectory

		dataDir := cfg.DataDir()
		userCfg, err := LoadUserConfig(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
		cfg.BackendURL = userCfg.Backend.URL
		cfg.DefaultModel = userCfg.Backend.DefaultModel
		cfg.DefaultMatter = userCfg.DefaultMatter
		cfg.DefaultSystemPrompt = userCfg.DefaultSystemPrompt
		cfg.UseRAG = userCfg.UseRAG
	}

	// Environment variables win over file settings.
	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Ensure data directory has correct permissions (fix if needed)
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	return cfg, nil
}
