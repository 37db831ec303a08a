// Package web serves the annotation tool's HTTP JSON API, the rendered image
// endpoints and the live statistics websocket.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ironsheep/bbox-annotator/internal/imaging"
	"github.com/ironsheep/bbox-annotator/internal/reconcile"
	"github.com/ironsheep/bbox-annotator/internal/store"
)

// maxBodySize bounds POST bodies.
const maxBodySize = 10 << 20

const shutdownTimeout = 5 * time.Second

// Deps are the components the HTTP layer serves.
type Deps struct {
	Store  *store.Store
	Loader *imaging.Loader

	// Match holds the IoU threshold, tolerance and strategy used for
	// server-side statistics.
	Match reconcile.Options

	// StaticDir holds the browser UI. Empty disables static serving.
	StaticDir string

	Logger *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	deps   Deps
	logger *slog.Logger
	hub    *Hub
}

// New wires the handlers and subscribes the stats hub to store changes.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		deps:   deps,
		logger: deps.Logger.With("component", "http"),
	}
	s.hub = NewHub(s.statsMessage, s.logger)
	deps.Store.OnChange(s.hub.Notify)
	return s
}

// Hub returns the live statistics hub. Its Run loop must be started before
// websocket clients connect; ListenAndServe does this.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Detection sets
	mux.HandleFunc("GET /get_all_detections", s.handleAllDetections)
	mux.HandleFunc("GET /get_stats_data", s.handleStatsData)
	mux.HandleFunc("POST /update_detections", s.handleUpdateDetections)
	mux.HandleFunc("POST /reset_working_copy", s.handleResetWorkingCopy)

	// Gallery and statistics
	mux.HandleFunc("GET /api/labels", s.handleLabels)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/artworks", s.handleArtworks)
	mux.HandleFunc("GET /api/annotate", s.handleAnnotate)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.Handle("GET /ws/stats", s.hub)

	// Rendered images
	mux.HandleFunc("GET /api/images/{file}/info", s.handleImageInfo)
	mux.HandleFunc("GET /api/images/{file}/overlay.png", s.handleOverlay)
	mux.HandleFunc("GET /api/images/{file}/detections/{id}/crop.png", s.handleCrop)
	mux.HandleFunc("GET /api/images/{file}/detections/{id}/highlight.png", s.handleHighlight)
	mux.HandleFunc("GET /api/images/{file}/detections/{id}/colors", s.handleColors)

	mux.HandleFunc("GET /health", s.handleHealth)

	if s.deps.Loader != nil {
		mux.Handle("GET /images/", http.StripPrefix("/images/", http.FileServer(http.Dir(s.deps.Loader.Root()))))
	}
	if s.deps.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.deps.StaticDir))))
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, filepath.Join(s.deps.StaticDir, "index.html"))
		})
	}

	return loggingMiddleware(s.logger, corsMiddleware(mux))
}

// ListenAndServe runs the hub and the HTTP server until ctx is cancelled,
// then shuts both down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("server listening", "addr", addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
