package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/bbox-annotator/internal/reconcile"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.IoUThreshold != reconcile.DefaultThreshold {
		t.Errorf("IoUThreshold: got %v", cfg.IoUThreshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Config)
		check   func(*testing.T, *Config)
		wantErr bool
	}{
		{
			name: "threshold out of range",
			edit: func(c *Config) { c.IoUThreshold = 1.5 },
			check: func(t *testing.T, c *Config) {
				if c.IoUThreshold != reconcile.DefaultThreshold {
					t.Errorf("IoUThreshold: got %v", c.IoUThreshold)
				}
			},
		},
		{
			name: "cache size",
			edit: func(c *Config) { c.ImageCacheSize = -1 },
			check: func(t *testing.T, c *Config) {
				if c.ImageCacheSize != 32 {
					t.Errorf("ImageCacheSize: got %d", c.ImageCacheSize)
				}
			},
		},
		{
			name: "bad log level",
			edit: func(c *Config) { c.LogLevel = "loud" },
			check: func(t *testing.T, c *Config) {
				if c.LogLevel != "info" {
					t.Errorf("LogLevel: got %q", c.LogLevel)
				}
			},
		},
		{
			name: "matching normalised",
			edit: func(c *Config) { c.Matching = "EXACT" },
			check: func(t *testing.T, c *Config) {
				if c.Matching != "exact" {
					t.Errorf("Matching: got %q", c.Matching)
				}
			},
		},
		{
			name: "working path derived",
			edit: func(c *Config) {
				c.OriginalPath = filepath.Join("d", "orig.json")
				c.WorkingPath = ""
			},
			check: func(t *testing.T, c *Config) {
				if want := filepath.Join("d", WorkingFile); c.WorkingPath != want {
					t.Errorf("WorkingPath: got %q, want %q", c.WorkingPath, want)
				}
			},
		},
		{name: "unknown matching", edit: func(c *Config) { c.Matching = "best" }, wantErr: true},
		{name: "missing original", edit: func(c *Config) { c.OriginalPath = "" }, wantErr: true},
		{name: "same paths", edit: func(c *Config) { c.WorkingPath = c.OriginalPath }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != DefaultConfig().Addr {
		t.Errorf("Addr: got %q", cfg.Addr)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Addr = ":8080"
	cfg.Matching = "exact"
	cfg.IoUThreshold = 0.5
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Addr != ":8080" || got.Matching != "exact" || got.IoUThreshold != 0.5 {
		t.Errorf("loaded %+v", got)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAddr, ":9999")
	t.Setenv(EnvDataDir, "/srv/data")
	t.Setenv(EnvIoUThreshold, "0.45")
	t.Setenv(EnvMatching, "exact")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr: got %q", cfg.Addr)
	}
	if cfg.OriginalPath != filepath.Join("/srv/data", OriginalFile) || cfg.WorkingPath != filepath.Join("/srv/data", WorkingFile) {
		t.Errorf("paths: got %q, %q", cfg.OriginalPath, cfg.WorkingPath)
	}
	opts := cfg.MatchOptions()
	if opts.Threshold != 0.45 || opts.Strategy != reconcile.StrategyExact {
		t.Errorf("MatchOptions: got %+v", opts)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level: got %v", cfg.Level())
	}
}

func TestApplyEnv_BadThreshold(t *testing.T) {
	t.Setenv(EnvIoUThreshold, "high")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric threshold")
	}
}
