package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/bbox-annotator/internal/config"
	"github.com/ironsheep/bbox-annotator/internal/imaging"
	"github.com/ironsheep/bbox-annotator/internal/ocr"
	"github.com/ironsheep/bbox-annotator/internal/server"
	"github.com/ironsheep/bbox-annotator/internal/store"
	"github.com/ironsheep/bbox-annotator/internal/web"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `bbox-annotator - bounding-box annotation server

Usage: bbox-annotator <command> [options]

Commands:
  serve     Run the HTTP server and browser UI (default)
  mcp       Run the MCP server over stdin/stdout
  config    Print the effective configuration, or write it with -o
  version   Print version information
  help      Print this help message

Options:
  -config path   JSON configuration file (missing file means defaults)

Environment variables:
  BBOX_ANNOTATOR_ADDR            Listen address, e.g. :5000
  BBOX_ANNOTATOR_DATA_DIR        Directory holding detections.json
  BBOX_ANNOTATOR_IMAGE_DIR       Directory holding the artwork images
  BBOX_ANNOTATOR_IOU_THRESHOLD   IoU a pair must exceed to match (default 0.3)
  BBOX_ANNOTATOR_MATCHING        greedy or exact
  BBOX_ANNOTATOR_LOG_LEVEL       debug, info, warn or error
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "bbox-annotator %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "serve", "mcp", "config":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSON configuration file")
	addr := fs.String("addr", "", "listen address (serve only)")
	out := fs.String("o", "", "write the configuration to this file (config only)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	switch cmd {
	case "config":
		err = writeConfig(cfg, *out, stdout)
	case "mcp":
		// stdout carries the protocol, so logs go to stderr.
		err = runMCP(cfg, NewLogger(stderr, cfg.Level()), stdin, stdout)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = runServe(ctx, cfg, NewLogger(stdout, cfg.Level()))
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func writeConfig(cfg *config.Config, path string, stdout io.Writer) error {
	if path != "" {
		return cfg.Save(path)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// open loads the detection store and the image loader named by cfg.
func open(cfg *config.Config, logger *slog.Logger) (*store.Store, *imaging.Loader, error) {
	st, err := store.Open(cfg.OriginalPath, cfg.WorkingPath, logger.With("component", "store"))
	if err != nil {
		return nil, nil, err
	}
	loader, err := imaging.NewLoader(cfg.ImageDir, cfg.ImageCacheSize)
	if err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(cfg.ImageDir); errors.Is(err, os.ErrNotExist) {
		logger.Warn("image directory does not exist; image endpoints will fail", "image_dir", cfg.ImageDir)
	}
	return st, loader, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting bbox-annotator",
		"version", Version,
		"commit", GitCommit,
		"original", cfg.OriginalPath,
		"working", cfg.WorkingPath,
		"matching", cfg.Matching,
		"iou_threshold", cfg.IoUThreshold,
	)
	st, loader, err := open(cfg, logger)
	if err != nil {
		return err
	}

	srv := web.New(web.Deps{
		Store:     st,
		Loader:    loader,
		Match:     cfg.MatchOptions(),
		StaticDir: cfg.StaticDir,
		Logger:    logger,
	})
	return srv.ListenAndServe(ctx, cfg.Addr)
}

func runMCP(cfg *config.Config, logger *slog.Logger, stdin io.Reader, stdout io.Writer) error {
	st, loader, err := open(cfg, logger)
	if err != nil {
		return err
	}

	if v, err := ocr.Version(); err != nil {
		logger.Debug("OCR unavailable", "error", err)
	} else {
		logger.Debug("OCR available", "tesseract", v, "language", cfg.OCRLanguage)
	}

	srv := server.New(server.Deps{
		Store:   st,
		Loader:  loader,
		OCR:     ocr.NewEngine(cfg.OCRLanguage, ""),
		Match:   cfg.MatchOptions(),
		Logger:  logger,
		Version: Version,
	})
	logger.Debug("MCP server ready", "version", Version, "built", BuildTime)
	return srv.Run(stdin, stdout)
}
