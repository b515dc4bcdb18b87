// Package config handles configuration loading for Kestrel. It supports XDG
// config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for Kestrel.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Resolve    ResolveConfig    `mapstructure:"resolve"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Identity   IdentityConfig   `mapstructure:"identity"`
}

// AnthropicConfig holds LLM provider settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Model is the model name. Empty uses the SDK default.
	Model string `mapstructure:"model"`
	// MaxTokens caps completion length.
	MaxTokens int64 `mapstructure:"max_tokens"`
	// UseAWSBedrock routes calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile.
	AWSProfile string `mapstructure:"aws_profile"`
}

// SupervisorConfig holds scheduling guard bounds.
type SupervisorConfig struct {
	// MaxTicks is the hard per-turn tick ceiling.
	MaxTicks int `mapstructure:"max_ticks"`
	// DeadlockRetryLimit bounds the circuit breaker.
	DeadlockRetryLimit int `mapstructure:"deadlock_retry_limit"`
}

// ResolveConfig holds context resolution settings.
type ResolveConfig struct {
	// HistoryLimit bounds the rolling context history.
	HistoryLimit int `mapstructure:"history_limit"`
}

// PromptsConfig holds prompt override pack settings.
type PromptsConfig struct {
	// PackPath is the YAML prompt override file. Empty disables overrides.
	PackPath string `mapstructure:"pack_path"`
	// Watch enables hot reload of the pack file.
	Watch bool `mapstructure:"watch"`
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	// Path is the sqlite database file. Empty uses the XDG data dir.
	Path string `mapstructure:"path"`
}

// IdentityConfig holds the configuration-backed identity tier.
type IdentityConfig struct {
	UserID      string `mapstructure:"user_id"`
	Email       string `mapstructure:"email"`
	Name        string `mapstructure:"name"`
	Role        string `mapstructure:"role"`
	CompanyID   string `mapstructure:"company_id"`
	CompanyName string `mapstructure:"company_name"`
	Locale      string `mapstructure:"locale"`
}

// Load loads configuration with precedence (highest first):
// 1. Environment variables (KESTREL_*, ANTHROPIC_API_KEY)
// 2. Project config (.kestrel.yaml in the current directory or a parent)
// 3. User config (~/.config/kestrel/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("KESTREL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("supervisor.max_ticks", 25)
	v.SetDefault("supervisor.deadlock_retry_limit", 3)
	v.SetDefault("resolve.history_limit", 10)
	v.SetDefault("prompts.watch", false)
}

// userConfigDir returns the XDG config directory for Kestrel.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kestrel")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "kestrel")
}

// findProjectConfig walks up from the current directory looking for
// .kestrel.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".kestrel.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnv expands ${VAR} references in a config value.
func expandEnv(s string) string {
	if strings.Contains(s, "${") {
		return os.ExpandEnv(s)
	}
	return s
}
