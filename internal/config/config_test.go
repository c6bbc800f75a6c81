package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SheetURL != "" || cfg.ChatProxyURL != "" {
		t.Errorf("urls should default empty: %+v", cfg)
	}
	if cfg.RequestTimeout() != 12*time.Second {
		t.Errorf("timeout = %v", cfg.RequestTimeout())
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("sheet_url: https://sheet.example/exec\nchat_proxy_url: https://proxy.example\nrequest_timeout_seconds: 30\ndb_path: /tmp/fo.db\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SheetURL != "https://sheet.example/exec" {
		t.Errorf("sheet url = %q", cfg.SheetURL)
	}
	if cfg.ChatProxyURL != "https://proxy.example" {
		t.Errorf("proxy url = %q", cfg.ChatProxyURL)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.RequestTimeout())
	}
	if cfg.DBPath != "/tmp/fo.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("sheet_url: [unclosed"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml should error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "dir", "config.yaml")
	in := &Config{SheetURL: "https://s", RequestTimeoutSeconds: 20}

	if err := Save(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.SheetURL != in.SheetURL || out.RequestTimeoutSeconds != 20 {
		t.Fatalf("round trip lost data: %+v", out)
	}
}
