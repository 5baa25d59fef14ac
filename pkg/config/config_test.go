package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
name: trade-sync
storage:
  bucket: ledgers
  region: eu-west-1
target:
  master_name: master.csv
  prefix: trading
backup:
  enabled: true
  folder: backups
result_log:
  type: redis
  address: 127.0.0.1:6379
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "trade-sync" {
		t.Errorf("unexpected name: %q", cfg.Name)
	}
	if cfg.Storage.Bucket != "ledgers" {
		t.Errorf("unexpected bucket: %q", cfg.Storage.Bucket)
	}

	// Defaults.
	if cfg.CSV.Delimiter != ";" {
		t.Errorf("expected default delimiter, got %q", cfg.CSV.Delimiter)
	}
	if cfg.CSV.DateField != "Data" {
		t.Errorf("expected default date field, got %q", cfg.CSV.DateField)
	}
	if cfg.Upload.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Upload.Workers)
	}
	if cfg.Backup.Keep != 10 {
		t.Errorf("expected keep=10, got %d", cfg.Backup.Keep)
	}
	if cfg.ResultLog.TTL != 3600 {
		t.Errorf("expected ttl=3600, got %d", cfg.ResultLog.TTL)
	}
	if !cfg.Retry.Enabled || cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected default retry config, got %+v", cfg.Retry)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", `
storage: {bucket: b, region: r}
target: {master_name: m.csv}
`},
		{"missing master name", `
name: x
storage: {bucket: b, region: r}
`},
		{"missing bucket", `
name: x
storage: {region: r}
target: {master_name: m.csv}
`},
		{"multichar delimiter", `
name: x
storage: {bucket: b, region: r}
target: {master_name: m.csv}
csv: {delimiter: ";;"}
`},
		{"backup without folder", `
name: x
storage: {bucket: b, region: r}
target: {master_name: m.csv}
backup: {enabled: true}
`},
		{"bad notify type", `
name: x
storage: {bucket: b, region: r}
target: {master_name: m.csv}
notify: {type: carrier-pigeon}
`},
		{"redis without address", `
name: x
storage: {bucket: b, region: r}
target: {master_name: m.csv}
result_log: {type: redis}
`},
		{"report without destination", `
name: x
storage: {bucket: b, region: r}
target: {master_name: m.csv}
report: {enabled: true}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
