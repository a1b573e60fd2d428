package config

import (
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	got := ExpandPath("~/.local/share/lexio")
	want := filepath.Join("/home/tester", ".local", "share", "lexio")
	if got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}

	if got := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath(\"\") = %q, want empty", got)
	}
}

func TestNormalizeDataDirectory(t *testing.T) {
	if _, err := NormalizeDataDirectory(""); err == nil {
		t.Error("NormalizeDataDirectory(\"\") should fail")
	}

	got, err := NormalizeDataDirectory("/data/lexio")
	if err != nil {
		t.Fatalf("NormalizeDataDirectory() error = %v", err)
	}
	if got != "/data/lexio" {
		t.Errorf("NormalizeDataDirectory() = %q, want path kept as-is", got)
	}

	got, err = NormalizeDataDirectory("/data")
	if err != nil {
		t.Fatalf("NormalizeDataDirectory() error = %v", err)
	}
	if got != filepath.Join("/data", "lexio") {
		t.Errorf("NormalizeDataDirectory() = %q, want lexio appended", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LEXIO_BACKEND_URL", "https://backend.example.com")
	t.Setenv("LEXIO_MODEL", "gpt-4o")
	t.Setenv("LEXIO_DATA_DIR", t.TempDir())

	if !HasAllEnvVars() {
		t.Fatal("HasAllEnvVars() = false with all three set")
	}
	if missing := GetMissingEnvVar(); missing != "" {
		t.Errorf("GetMissingEnvVar() = %q, want empty", missing)
	}

	cfg := &Config{}
	cfg.applyEnvOverrides()
	if cfg.BackendURL != "https://backend.example.com" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
}
