package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTOML(t *testing.T, data string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "logparsely.toml")
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	return file
}

func TestLoadMinimal(t *testing.T) {
	file := writeTOML(t, `
sources = ["tail -f /var/log/app.log"]
`)
	c, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Sources) != 1 || c.Sources[0] != "tail -f /var/log/app.log" {
		t.Fatalf("unexpected sources: %v", c.Sources)
	}
	if c.DBPath != "" {
		t.Fatalf("expected empty db_path, got %q", c.DBPath)
	}
	if c.Metrics != nil {
		t.Fatalf("expected nil metrics config")
	}
}

func TestLoadFull(t *testing.T) {
	file := writeTOML(t, `
db_path = "logs/capture.db"
sources = ["cmd-a", "cmd-b"]

[log]
level = "debug"
file = "logs/run.log"
max_size_mb = 5
max_backups = 2
max_age_days = 1
compress = true

[metrics]
enabled = true
listen = ":9091"
`)
	c, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DBPath != "logs/capture.db" {
		t.Fatalf("db_path=%q", c.DBPath)
	}
	if len(c.Sources) != 2 {
		t.Fatalf("sources=%v", c.Sources)
	}
	if c.Log.Level != "debug" || c.Log.File != "logs/run.log" || c.Log.MaxSizeMB != 5 || !c.Log.Compress {
		t.Fatalf("log config mismatch: %+v", c.Log)
	}
	if c.Metrics == nil || !c.Metrics.Enabled || c.Metrics.Listen != ":9091" {
		t.Fatalf("metrics config mismatch: %+v", c.Metrics)
	}
}

func TestLoadRejectsMetricsWithoutListen(t *testing.T) {
	file := writeTOML(t, `
[metrics]
enabled = true
`)
	if _, err := Load(file); err == nil {
		t.Fatalf("expected error for enabled metrics without listen")
	}
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	file := writeTOML(t, `
[log]
level = "shout"
`)
	if _, err := Load(file); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
