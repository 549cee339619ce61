package config

import (
	"os"
	"testing"
)

func TestLoad_RequiresPassphrase(t *testing.T) {
	os.Unsetenv("CLINIC_PASSPHRASE")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when CLINIC_PASSPHRASE is missing")
	}
}

func TestLoad_WithPassphrase(t *testing.T) {
	t.Setenv("CLINIC_PASSPHRASE", "correct horse battery staple")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Passphrase != "correct horse battery staple" {
		t.Errorf("expected CLINIC_PASSPHRASE to be set, got %s", cfg.Passphrase)
	}

	if cfg.DataDir != "./data" {
		t.Errorf("expected default data dir ./data, got %s", cfg.DataDir)
	}

	if cfg.SelectionPolicy != PolicyLeastLoaded {
		t.Errorf("expected default policy %q, got %s", PolicyLeastLoaded, cfg.SelectionPolicy)
	}

	if cfg.OpeningHour != 8 || cfg.ClosingHour != 17 {
		t.Errorf("expected default working hours 8-17, got %d-%d", cfg.OpeningHour, cfg.ClosingHour)
	}
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	t.Setenv("CLINIC_PASSPHRASE", "secret")
	t.Setenv("CLINIC_SELECTION_POLICY", "round-robin")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown selection policy")
	}
}

func TestLoad_RejectsInvertedHours(t *testing.T) {
	t.Setenv("CLINIC_PASSPHRASE", "secret")
	t.Setenv("CLINIC_OPENING_HOUR", "18")
	t.Setenv("CLINIC_CLOSING_HOUR", "9")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for inverted working hours")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}
