package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MOODLOG_CONFIG_PATH", dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TrendDays != 7 || cfg.MinTagOccurrences != 2 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Listen != "127.0.0.1:5001" || cfg.DuplicatePolicy != "last" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !strings.HasSuffix(cfg.DBPath, filepath.Join("moodlog", "moodlog.db")) {
		t.Errorf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.Remote() {
		t.Error("default config should be local")
	}
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	dir := os.Getenv("MOODLOG_CONFIG_PATH")
	body := "trend_days: 30\napi_url: http://example.test:5001\nduplicate_policy: newest\ndb: ~/journal.db\n"
	if err := os.WriteFile(filepath.Join(dir, ".moodlog.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TrendDays != 30 || cfg.DuplicatePolicy != "newest" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if !cfg.Remote() || cfg.APIURL != "http://example.test:5001" {
		t.Errorf("expected remote config, got %q", cfg.APIURL)
	}
	home, err := homedir.Dir()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != filepath.Join(home, "journal.db") {
		t.Errorf("expected ~ expanded, got %q", cfg.DBPath)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	dir := os.Getenv("MOODLOG_CONFIG_PATH")
	if err := os.WriteFile(filepath.Join(dir, ".moodlog.yaml"), []byte("trend_days: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOODLOG_TREND_DAYS", "90")

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TrendDays != 90 {
		t.Errorf("expected env override 90, got %d", cfg.TrendDays)
	}
}

func TestNonPositiveValuesFallBack(t *testing.T) {
	isolate(t)
	t.Setenv("MOODLOG_TREND_DAYS", "0")
	t.Setenv("MOODLOG_MIN_TAG_OCCURRENCES", "-1")

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TrendDays != 7 || cfg.MinTagOccurrences != 2 {
		t.Errorf("expected fallbacks, got %+v", cfg)
	}
}

func TestBrokenConfigFile(t *testing.T) {
	isolate(t)
	dir := os.Getenv("MOODLOG_CONFIG_PATH")
	if err := os.WriteFile(filepath.Join(dir, ".moodlog.yaml"), []byte("trend_days: [oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(New()); err == nil {
		t.Fatal("expected error for malformed config")
	}
}
