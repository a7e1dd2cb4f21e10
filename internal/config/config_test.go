package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultsPort(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Parse([]string{"--data-dir", dir})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != defaultPort {
		t.Fatalf("Port = %d, want %d", cfg.Port, defaultPort)
	}
	if cfg.DataDir != dir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
}

func TestParseShorthandFlags(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Parse([]string{"-p", "9999", "-d", dir})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9999 {
		t.Fatalf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.DataDir != dir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
}

func TestParseCreatesMissingDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	if _, err := Parse([]string{"--data-dir", dir}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("expected data dir %s to be created: %v", dir, err)
	}
	if !info.IsDir() {
		t.Fatalf("%s is not a directory", dir)
	}
}
