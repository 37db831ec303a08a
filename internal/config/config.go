// Package config holds the runtime configuration of the annotation server.
//
// Values come from DefaultConfig, then an optional JSON file, then
// BBOX_ANNOTATOR_* environment variables, and are finally clamped by
// Validate.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/bbox-annotator/internal/reconcile"
)

// Environment variables read by ApplyEnv.
const (
	EnvAddr         = "BBOX_ANNOTATOR_ADDR"
	EnvDataDir      = "BBOX_ANNOTATOR_DATA_DIR"
	EnvImageDir     = "BBOX_ANNOTATOR_IMAGE_DIR"
	EnvIoUThreshold = "BBOX_ANNOTATOR_IOU_THRESHOLD"
	EnvMatching     = "BBOX_ANNOTATOR_MATCHING"
	EnvLogLevel     = "BBOX_ANNOTATOR_LOG_LEVEL"
)

// File names used inside a data directory.
const (
	OriginalFile = "detections.json"
	WorkingFile  = "detections_working.json"
)

// Config holds runtime configuration for the HTTP and MCP servers.
type Config struct {
	Addr string `json:"addr"`

	// Detection files
	OriginalPath string `json:"original_path"`
	WorkingPath  string `json:"working_path"`

	// Artwork images and the browser assets
	ImageDir  string `json:"image_dir"`
	StaticDir string `json:"static_dir"`

	// Reconciliation
	IoUThreshold  float64 `json:"iou_threshold"`
	Matching      string  `json:"matching"`
	BBoxTolerance float64 `json:"bbox_tolerance"`

	ImageCacheSize int    `json:"image_cache_size"`
	OCRLanguage    string `json:"ocr_language"`
	LogLevel       string `json:"log_level"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":5000",
		OriginalPath:   filepath.Join("data", OriginalFile),
		WorkingPath:    filepath.Join("data", WorkingFile),
		ImageDir:       filepath.Join("static", "artworks"),
		StaticDir:      "static",
		IoUThreshold:   reconcile.DefaultThreshold,
		Matching:       string(reconcile.StrategyGreedy),
		BBoxTolerance:  reconcile.DefaultTolerance,
		ImageCacheSize: 32,
		OCRLanguage:    "eng",
		LogLevel:       "info",
	}
}

// Validate clamps values to safe ranges. It returns an error only for values
// that cannot be repaired.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = ":5000"
	}
	if c.IoUThreshold <= 0 || c.IoUThreshold >= 1 {
		c.IoUThreshold = reconcile.DefaultThreshold
	}
	if c.BBoxTolerance <= 0 {
		c.BBoxTolerance = reconcile.DefaultTolerance
	}
	if c.ImageCacheSize <= 0 {
		c.ImageCacheSize = 32
	}
	if c.OCRLanguage == "" {
		c.OCRLanguage = "eng"
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		c.LogLevel = "info"
	}

	st, err := reconcile.ParseStrategy(c.Matching)
	if err != nil {
		return err
	}
	c.Matching = string(st)

	if c.OriginalPath == "" {
		return fmt.Errorf("original_path is required")
	}
	if c.WorkingPath == "" {
		c.WorkingPath = filepath.Join(filepath.Dir(c.OriginalPath), WorkingFile)
	}
	if filepath.Clean(c.OriginalPath) == filepath.Clean(c.WorkingPath) {
		return fmt.Errorf("working_path must differ from original_path")
	}
	return nil
}

// MatchOptions returns the reconciliation options selected by c.
func (c *Config) MatchOptions() reconcile.Options {
	st, _ := reconcile.ParseStrategy(c.Matching)
	return reconcile.Options{
		Threshold: c.IoUThreshold,
		Tolerance: c.BBoxTolerance,
		Strategy:  st,
	}
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel maps debug/info/warn/error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

// Load reads configuration from the JSON file at path, applies environment
// overrides and validates the result. A missing file, or an empty path, gives
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := os.Open(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, err
		default:
			defer f.Close()
			if err := json.NewDecoder(f).Decode(cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from BBOX_ANNOTATOR_* environment variables.
// A data directory replaces both detection file paths.
func (c *Config) ApplyEnv() error {
	c.Addr = getEnv(EnvAddr, c.Addr)
	if dir := getEnv(EnvDataDir, ""); dir != "" {
		c.OriginalPath = filepath.Join(dir, OriginalFile)
		c.WorkingPath = filepath.Join(dir, WorkingFile)
	}
	c.ImageDir = getEnv(EnvImageDir, c.ImageDir)
	c.Matching = getEnv(EnvMatching, c.Matching)
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)

	if v := getEnv(EnvIoUThreshold, ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIoUThreshold, err)
		}
		c.IoUThreshold = f
	}
	return nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
