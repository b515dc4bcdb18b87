package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Anthropic.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d, want 4096", cfg.Anthropic.MaxTokens)
	}
	if cfg.Supervisor.MaxTicks != 25 {
		t.Errorf("max_ticks = %d, want 25", cfg.Supervisor.MaxTicks)
	}
	if cfg.Supervisor.DeadlockRetryLimit != 3 {
		t.Errorf("deadlock_retry_limit = %d, want 3", cfg.Supervisor.DeadlockRetryLimit)
	}
	if cfg.Resolve.HistoryLimit != 10 {
		t.Errorf("history_limit = %d, want 10", cfg.Resolve.HistoryLimit)
	}
}

func TestLoadUserConfig(t *testing.T) {
	isolate(t)
	configDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "kestrel")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "supervisor:\n  max_ticks: 10\nidentity:\n  user_id: u1\n  company_id: comp_1\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Supervisor.MaxTicks != 10 {
		t.Errorf("max_ticks = %d, want 10 from user config", cfg.Supervisor.MaxTicks)
	}
	if cfg.Identity.UserID != "u1" || cfg.Identity.CompanyID != "comp_1" {
		t.Errorf("identity = %+v", cfg.Identity)
	}
	// Untouched keys keep defaults.
	if cfg.Resolve.HistoryLimit != 10 {
		t.Errorf("history_limit = %d, want default 10", cfg.Resolve.HistoryLimit)
	}
}

func TestLoadProjectConfigOverridesUser(t *testing.T) {
	isolate(t)
	configDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "kestrel")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("supervisor:\n  max_ticks: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cwd, _ := os.Getwd()
	if err := os.WriteFile(filepath.Join(cwd, ".kestrel.yaml"), []byte("supervisor:\n  max_ticks: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Supervisor.MaxTicks != 7 {
		t.Errorf("max_ticks = %d, want 7 from project config", cfg.Supervisor.MaxTicks)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("KESTREL_SUPERVISOR_MAX_TICKS", "5")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Supervisor.MaxTicks != 5 {
		t.Errorf("max_ticks = %d, want 5 from environment", cfg.Supervisor.MaxTicks)
	}
	if cfg.Anthropic.APIKey != "sk-test-key" {
		t.Errorf("api_key = %q, want value from ANTHROPIC_API_KEY", cfg.Anthropic.APIKey)
	}
}

func TestExpandEnvInAPIKey(t *testing.T) {
	isolate(t)
	t.Setenv("MY_SECRET", "sk-expanded")

	configDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "kestrel")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("anthropic:\n  api_key: ${MY_SECRET}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Anthropic.APIKey != "sk-expanded" {
		t.Errorf("api_key = %q, want expanded value", cfg.Anthropic.APIKey)
	}
}
