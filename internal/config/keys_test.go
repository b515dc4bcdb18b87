package config

import (
	"errors"
	"testing"
)

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key")

	key, err := APIKey(&Config{})
	if err != nil {
		t.Fatal(err)
	}
	if key != "sk-ant-env-key" {
		t.Errorf("key = %q", key)
	}
}

func TestAPIKeyFromConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := &Config{}
	cfg.Anthropic.APIKey = "sk-ant-config-key"
	key, err := APIKey(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if key != "sk-ant-config-key" {
		t.Errorf("key = %q", key)
	}
}

func TestAPIKeyUnexpandedReferenceRejected(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := &Config{}
	cfg.Anthropic.APIKey = "${UNSET_SECRET_VAR}"
	if _, err := APIKey(cfg); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestAPIKeyMissing(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := APIKey(nil); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("empty = %q", got)
	}
	if got := MaskAPIKey("short"); got != "***" {
		t.Errorf("short = %q", got)
	}
	long := "sk-ant-REDACTED"
	got := MaskAPIKey(long)
	if got != "sk-ant-...1234" {
		t.Errorf("long = %q", got)
	}
}
