package tool

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Transport != "tcp" || cfg.ListenAddr != "0.0.0.0:9021" {
		t.Errorf("defaults = %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file was not written: %v", err)
	}

	// A second load reads the file it just wrote.
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again != cfg {
		t.Errorf("reload = %+v, want %+v", again, cfg)
	}
}

func TestLoadConfigParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("listenAddr: 127.0.0.1:7777\nroot: /srv/files\ntransport: udp\nidleTimeoutSecs: 60\nadminEnabled: true\nadminPort: 7778\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7777" || cfg.Root != "/srv/files" {
		t.Errorf("addr/root = %q/%q", cfg.ListenAddr, cfg.Root)
	}
	if cfg.Transport != "udp" || cfg.IdleTimeoutSecs != 60 {
		t.Errorf("transport/idle = %q/%d", cfg.Transport, cfg.IdleTimeoutSecs)
	}
	if !cfg.AdminEnabled || cfg.AdminPort != 7778 {
		t.Errorf("admin = %v/%d", cfg.AdminEnabled, cfg.AdminPort)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("transport: [not, a, string"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed yaml accepted")
	}

	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Error("directory path accepted")
	}
}

func TestLoadConfigClampsIdleTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("idleTimeoutSecs: -5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.IdleTimeoutSecs != 300 {
		t.Errorf("idleTimeoutSecs = %d, want 300", cfg.IdleTimeoutSecs)
	}
}
