package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.WebPort != def.WebPort || cfg.WebBind != def.WebBind {
		t.Errorf("web = %s:%d, want %s:%d", cfg.WebBind, cfg.WebPort, def.WebBind, def.WebPort)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log = %s/%s, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.DiscardOnRebuild {
		t.Error("DiscardOnRebuild should default to false")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "chrome-extension://*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"web_port": 9000, "log_format": "json", "discard_on_rebuild": true}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WebPort != 9000 {
		t.Errorf("WebPort = %d, want 9000", cfg.WebPort)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if !cfg.DiscardOnRebuild {
		t.Error("DiscardOnRebuild = false, want true")
	}
	// Untouched fields keep defaults
	if cfg.WebBind != "127.0.0.1" {
		t.Errorf("WebBind = %q, want default", cfg.WebBind)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{not json}`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `{"disabled_tools": ["trash_empty", "trash_purge"]}`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "trash_empty" || cfg.DisabledTools[1] != "trash_purge" {
		t.Errorf("DisabledTools = %v", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	writeConfig(t, globalDir, `{"web_port": 8000, "disabled_tools": ["trash_empty"]}`)
	writeConfig(t, filepath.Join(repoRoot, DirName), `{"web_port": 8100, "disabled_tools": ["trash_purge"]}`)

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.WebPort != 8100 {
		t.Errorf("WebPort = %d, want 8100 (repo override)", cfg.WebPort)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_OnlyGlobal(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()
	writeConfig(t, globalDir, `{"log_level": "debug"}`)

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.WebPort != 7420 {
		t.Errorf("WebPort = %d, want 7420", cfg.WebPort)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{WebPort: 7420, DBMaxOpenConns: 5, LogLevel: "info"}
	overlay := &Config{WebPort: 9000, LogLevel: "  "}

	result := Merge(base, overlay)

	if result.WebPort != 9000 {
		t.Errorf("WebPort = %d, want 9000 (overlay)", result.WebPort)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
	if result.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info (blank overlay ignored)", result.LogLevel)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	result := Merge(&Config{DiscardOnRebuild: true}, &Config{DiscardOnRebuild: false})
	if !result.DiscardOnRebuild {
		t.Error("DiscardOnRebuild should be true (base OR overlay)")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"}}
	overlay := &Config{AllowedOrigins: []string{" http://localhost:3000 ", "moz-extension://*"}}

	result := Merge(base, overlay)

	want := []string{"chrome-extension://*", "http://localhost:3000", "moz-extension://*"}
	if len(result.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v, want %v", result.AllowedOrigins, want)
	}
	for i := range want {
		if result.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, result.AllowedOrigins[i], want[i])
		}
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, filepath.Join(tmpDir, DirName), `{}`)

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if found := FindRepoConfig(subdir); found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
	if found := FindRepoConfig(tmpDir); found != configPath {
		t.Errorf("FindRepoConfig() = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	if found := FindRepoConfig(t.TempDir()); found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
	if found := FindRepoConfig(""); found != "" {
		t.Errorf("FindRepoConfig(\"\") = %q, want empty string", found)
	}
}
