package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Provider  string         `mapstructure:"provider"`
	Streaming bool           `mapstructure:"streaming"`
	Logging   LoggingConfig  `mapstructure:"logging"`
	Storage   StorageConfig  `mapstructure:"storage"`
	Ollama    OllamaConfig   `mapstructure:"ollama"`
	Backend   BackendConfig  `mapstructure:"backend"`
	Search    SearchConfig   `mapstructure:"search"`
	Sampling  SamplingConfig `mapstructure:"sampling"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// StorageConfig holds local persistence configuration
type StorageConfig struct {
	SnapshotFile string `mapstructure:"snapshot_file"`
}

// OllamaConfig holds the local provider configuration
type OllamaConfig struct {
	URL        string        `mapstructure:"url"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"-"`
	TimeoutStr string        `mapstructure:"timeout"`
}

// BackendConfig holds the hosted chat backend configuration
type BackendConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"-"`
	TimeoutStr string        `mapstructure:"timeout"`
}

// SearchConfig holds session search configuration
type SearchConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PersistenceDir string `mapstructure:"persistence_dir"`
	EmbedderURL    string `mapstructure:"embedder_url"`
	EmbedderModel  string `mapstructure:"embedder_model"`
}

// SamplingConfig holds default sampling parameters for sends
type SamplingConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.parley")
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "parley"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("PARLEY")
	viper.AutomaticEnv()

	// Missing config file is fine; defaults and env carry the day
	_ = viper.ReadInConfig()

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(cfg); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("provider", "ollama")
	viper.SetDefault("streaming", true)

	viper.SetDefault("ollama.url", "http://localhost:11434")
	viper.SetDefault("ollama.model", "qwen3:latest")
	viper.SetDefault("ollama.timeout", "90s")

	viper.SetDefault("backend.url", "")
	viper.SetDefault("backend.timeout", "60s")

	viper.SetDefault("logging.log_file", "./.parley/system.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("storage.snapshot_file", "./.parley/chat_state.json")

	viper.SetDefault("search.enabled", true)
	viper.SetDefault("search.persistence_dir", "./.parley/search")
	viper.SetDefault("search.embedder_url", "http://localhost:11434")
	viper.SetDefault("search.embedder_model", "nomic-embed-text")

	viper.SetDefault("sampling.temperature", 0.7)
	viper.SetDefault("sampling.max_tokens", 2048)
}

// processDurations converts string durations to time.Duration (viper
// does not handle time.Duration in nested structs directly)
func processDurations(cfg *Config) error {
	if cfg.Ollama.TimeoutStr != "" {
		d, err := time.ParseDuration(cfg.Ollama.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid ollama.timeout: %w", err)
		}
		cfg.Ollama.Timeout = d
	} else {
		cfg.Ollama.Timeout = 90 * time.Second
	}

	if cfg.Backend.TimeoutStr != "" {
		d, err := time.ParseDuration(cfg.Backend.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid backend.timeout: %w", err)
		}
		cfg.Backend.Timeout = d
	} else {
		cfg.Backend.Timeout = 60 * time.Second
	}

	return nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
