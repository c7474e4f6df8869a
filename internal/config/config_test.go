package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
pipeline:
  retentionDays: 5
  displayTimezone: Asia/Kolkata
fetch:
  timeout: 20s
filters:
  urlPatterns: ["/sponsored/"]
sources:
  - name: Mint
    scanner: rss
    url: https://www.livemint.com/rss/markets
    siteUrl: https://www.livemint.com
    category: News
    timezone: Asia/Kolkata
  - name: SEBI
    scanner: rss
    url: https://www.sebi.gov.in/sebirss.xml
    timezone: Not/AZone
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Pipeline.RetentionDays != 5 || cfg.Pipeline.Retention() != 5*24*time.Hour {
		t.Fatalf("unexpected retention: %d", cfg.Pipeline.RetentionDays)
	}
	if cfg.Pipeline.PerSourceCap != 50 {
		t.Fatalf("default per-source cap lost: %d", cfg.Pipeline.PerSourceCap)
	}
	if cfg.Fetch.Timeout != 20*time.Second || cfg.Fetch.Workers != 10 {
		t.Fatalf("unexpected fetch config: %+v", cfg.Fetch)
	}
	if got := cfg.Pipeline.Location().String(); got != "Asia/Kolkata" {
		t.Fatalf("unexpected display location: %s", got)
	}

	if len(cfg.Filters.URLPatterns) != 1 || cfg.Filters.URLPatterns[0] != "/sponsored/" {
		t.Fatalf("url patterns not replaced: %v", cfg.Filters.URLPatterns)
	}
	if len(cfg.Filters.TitlePatterns) == 0 {
		t.Fatalf("default title patterns dropped")
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}
	if loc := cfg.Sources[0].Location(); loc == nil || loc.String() != "Asia/Kolkata" {
		t.Fatalf("source timezone not bound: %v", loc)
	}
	if cfg.Sources[1].Location() != nil {
		t.Fatalf("unknown source timezone should leave no hint")
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	cfg, err := LoadFile(writeConfig(t, "pipeline: [unclosed"))
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Pipeline.PerSourceCap != 50 {
		t.Fatalf("defaults must be returned alongside a parse error")
	}
}

func TestUnknownDisplayTimezoneFallsBackToUTC(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFile(writeConfig(t, "pipeline:\n  displayTimezone: Mars/Olympus\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Pipeline.Location() != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", cfg.Pipeline.Location())
	}
}

func TestLoadAppliesEnvironment(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\nranker:\n  model: file-model\n")
	t.Setenv(configPathEnv, path)
	t.Setenv("FINANCERADAR_LOG_LEVEL", "debug")
	t.Setenv("FINANCERADAR_RANKER_API_KEY", "secret")
	t.Setenv("FINANCERADAR_SCHEDULE", "*/30 * * * *")

	cfg := Load()

	if cfg.Logging.Level != "debug" {
		t.Fatalf("env level not applied: %s", cfg.Logging.Level)
	}
	if cfg.Ranker.APIKey != "secret" || cfg.Ranker.Model != "file-model" {
		t.Fatalf("unexpected ranker config: %+v", cfg.Ranker)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.CronExpression != "*/30 * * * *" {
		t.Fatalf("schedule override not applied: %+v", cfg.Scheduler)
	}
}

func TestDefaultsAreUsable(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if len(cfg.Pipeline.BypassCategories) != 2 {
		t.Fatalf("unexpected bypass categories: %v", cfg.Pipeline.BypassCategories)
	}
	if cfg.Ranker.Window != 48*time.Hour || cfg.Ranker.MaxArticles != 150 {
		t.Fatalf("unexpected ranker defaults: %+v", cfg.Ranker)
	}
	if cfg.Scheduler.Location() != time.UTC {
		t.Fatalf("scheduler location should default to UTC")
	}
}
