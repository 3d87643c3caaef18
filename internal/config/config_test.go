package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("IMPORT_BATCH_SIZE", "")
	t.Setenv("EDIT_FLUSH_DELAY", "")
	t.Setenv("ALLOWED_DOMAIN", "@Example.COM")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Import.BatchSize != 50 {
		t.Errorf("Expected batch size 50, got %d", cfg.Import.BatchSize)
	}
	if cfg.Edits.FlushDelay != 3*time.Second {
		t.Errorf("Expected flush delay 3s, got %v", cfg.Edits.FlushDelay)
	}
	if cfg.Auth.AllowedDomain != "@example.com" {
		t.Errorf("Expected lower-cased domain, got %q", cfg.Auth.AllowedDomain)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("IMPORT_BATCH_SIZE", "25")
	t.Setenv("EDIT_FLUSH_DELAY", "500ms")
	t.Setenv("UPLOAD_RATE_PER_SEC", "1.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Import.BatchSize != 25 {
		t.Errorf("Expected batch size 25, got %d", cfg.Import.BatchSize)
	}
	if cfg.Edits.FlushDelay != 500*time.Millisecond {
		t.Errorf("Expected flush delay 500ms, got %v", cfg.Edits.FlushDelay)
	}
	if cfg.Import.UploadRate != 1.5 {
		t.Errorf("Expected upload rate 1.5, got %v", cfg.Import.UploadRate)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Host: "localhost", Name: "the300"},
			Import:   ImportConfig{BatchSize: 50, MaxWorkers: 1},
			Edits:    EditConfig{FlushDelay: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: true},
		{name: "zero batch size", mutate: func(c *Config) { c.Import.BatchSize = 0 }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Import.MaxWorkers = 0 }, wantErr: true},
		{name: "zero flush delay", mutate: func(c *Config) { c.Edits.FlushDelay = 0 }, wantErr: true},
		{name: "short break-glass secret", mutate: func(c *Config) { c.Auth.BreakGlassSecret = "short" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
