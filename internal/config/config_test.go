package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.WebBind != "127.0.0.1" {
		t.Errorf("WebBind = %q, want %q", cfg.WebBind, "127.0.0.1")
	}
	if cfg.WebPort != 8931 {
		t.Errorf("WebPort = %d, want 8931", cfg.WebPort)
	}
	if cfg.HydrateLimit != 0 {
		t.Errorf("HydrateLimit = %d, want 0 (per-call defaults)", cfg.HydrateLimit)
	}
	if cfg.DisabledTools != nil {
		t.Errorf("DisabledTools = %v, want nil", cfg.DisabledTools)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WebPort != 8931 {
		t.Errorf("WebPort = %d, want default 8931", cfg.WebPort)
	}
}

func TestLoad_PartialFileMergesOverDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{"web_port": 9000, "disabled_tools": ["mindful_optout"]}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WebPort != 9000 {
		t.Errorf("WebPort = %d, want 9000", cfg.WebPort)
	}
	if cfg.WebBind != "127.0.0.1" {
		t.Errorf("WebBind = %q, want default kept", cfg.WebBind)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "mindful_optout" {
		t.Errorf("DisabledTools = %v, want [mindful_optout]", cfg.DisabledTools)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load with invalid JSON succeeded, want error")
	}
}

func TestMerge_OverlayWins(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{WebBind: "0.0.0.0", DBMaxOpenConns: 1}

	merged := Merge(base, overlay)

	if merged.WebBind != "0.0.0.0" {
		t.Errorf("WebBind = %q, want overlay value", merged.WebBind)
	}
	if merged.WebPort != 8931 {
		t.Errorf("WebPort = %d, want base value kept", merged.WebPort)
	}
	if merged.DBMaxOpenConns != 1 {
		t.Errorf("DBMaxOpenConns = %d, want 1", merged.DBMaxOpenConns)
	}
}

func TestMerge_SlicesDeduplicated(t *testing.T) {
	base := &Config{DisabledTools: []string{"mindful_search", " mindful_state "}}
	overlay := &Config{DisabledTools: []string{"mindful_search", "mindful_optout"}}

	merged := Merge(base, overlay)

	want := []string{"mindful_search", "mindful_state", "mindful_optout"}
	if len(merged.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", merged.DisabledTools, want)
	}
	for i := range want {
		if merged.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, merged.DisabledTools[i], want[i])
		}
	}
}
