package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
	"github.com/ironsheep/bbox-annotator/internal/imaging"
	"github.com/ironsheep/bbox-annotator/internal/reconcile"
)

var errBadQuery = errors.New("bad query parameter")

type updateRequest struct {
	ImageFile  string                 `json:"image_file"`
	Detections []annotation.Detection `json:"detections"`
}

type updateResponse struct {
	Success bool `json:"success"`

	// Detections echoes the stored detections, so the client learns the
	// IDs assigned to new boxes.
	Detections []annotation.Detection `json:"detections"`
}

func (s *Server) handleAllDetections(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.deps.Store.Working(), http.StatusOK)
}

func (s *Server) handleStatsData(w http.ResponseWriter, r *http.Request) {
	original, working := s.deps.Store.Snapshot()
	respondJSON(w, map[string][]annotation.ImageDetections{
		"original": original,
		"working":  working,
	}, http.StatusOK)
}

// handleUpdateDetections replaces the working detections of one image. The
// gallery filter parameters the UI appends to the URL do not affect storage.
func (s *Server) handleUpdateDetections(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		respondError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.ImageFile == "" {
		respondError(w, "image_file is required", http.StatusBadRequest)
		return
	}

	stored, err := s.deps.Store.UpdateImage(req.ImageFile, req.Detections)
	if err != nil {
		s.logger.Warn("update failed", "image", req.ImageFile, "error", err)
		respondError(w, err.Error(), statusFor(err))
		return
	}
	s.logger.Info("detections updated",
		"image", req.ImageFile,
		"count", len(stored),
		"filters", r.URL.RawQuery,
	)
	respondJSON(w, updateResponse{Success: true, Detections: stored}, http.StatusOK)
}

func (s *Server) handleResetWorkingCopy(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Reset(); err != nil {
		s.logger.Error("reset failed", "error", err)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("working copy reset")
	respondJSON(w, map[string]bool{"success": true}, http.StatusOK)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.deps.Store.Labels(), http.StatusOK)
}

func (s *Server) palette() *imaging.Palette {
	return imaging.NewPalette(s.deps.Store.Categories())
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.palette().Entries(), http.StatusOK)
}

// artwork is one gallery entry.
type artwork struct {
	ImageURL   string                 `json:"image_url"`
	ImageFile  string                 `json:"image_file"`
	Detections []annotation.Detection `json:"detections"`
	Metadata   artworkMetadata        `json:"metadata"`
}

type artworkMetadata struct {
	Year     string `json:"year"`
	Artist   string `json:"artist"`
	Database string `json:"database"`
	Location string `json:"location"`
}

func imageURL(file string) string {
	return "/images/" + url.PathEscape(file)
}

func filterFromQuery(q url.Values) annotation.Filter {
	return annotation.Filter{
		Year:     q.Get("year"),
		Artist:   q.Get("artist"),
		Database: q.Get("database"),
		Location: q.Get("location"),
		Category: q.Get("category"),
		Label:    q.Get("label"),
	}
}

func (s *Server) handleArtworks(w http.ResponseWriter, r *http.Request) {
	images := filterFromQuery(r.URL.Query()).Apply(s.deps.Store.Working())

	out := make([]artwork, 0, len(images))
	for _, im := range images {
		out = append(out, artwork{
			ImageURL:   imageURL(im.ImageFile),
			ImageFile:  im.ImageFile,
			Detections: im.Detections,
			Metadata: artworkMetadata{
				Year:     im.Year,
				Artist:   im.Artist,
				Database: im.Database,
				Location: im.Location,
			},
		})
	}
	respondJSON(w, out, http.StatusOK)
}

// annotatePage is one page of the single-image editor.
type annotatePage struct {
	ImageFile string `json:"image_file,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`

	// Labels are the labels on this image in first-seen order.
	Labels []string `json:"labels"`

	// UniqueLabels are all labels in the working set, sorted.
	UniqueLabels []string               `json:"unique_labels"`
	Page         int                    `json:"page"`
	TotalPages   int                    `json:"total_pages"`
	Detections   []annotation.Detection `json:"detections"`
	FilterClass  string                 `json:"filter_class"`
}

// handleAnnotate pages through the working set one image at a time,
// optionally restricted to images carrying the label given as class. Out of
// range pages are clamped.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, fmt.Sprintf("%v: page %q", errBadQuery, v), http.StatusBadRequest)
			return
		}
		page = n
	}
	class := q.Get("class")
	if class == "" {
		class = annotation.FilterAll
	}

	working := s.deps.Store.Working()
	images := working
	if class != annotation.FilterAll {
		images = annotation.Filter{Label: class}.Apply(working)
	}

	resp := annotatePage{
		Labels:       []string{},
		UniqueLabels: annotation.Labels(working),
		Page:         1,
		TotalPages:   1,
		Detections:   []annotation.Detection{},
		FilterClass:  class,
	}
	if len(images) == 0 {
		respondJSON(w, resp, http.StatusOK)
		return
	}

	resp.TotalPages = len(images)
	resp.Page = min(max(page, 1), resp.TotalPages)

	// Show every detection of the image, not only the filtered ones.
	current, _ := annotation.Find(working, images[resp.Page-1].ImageFile)
	resp.ImageFile = current.ImageFile
	resp.ImageURL = imageURL(current.ImageFile)
	resp.Detections = current.Detections
	for _, d := range current.Detections {
		if !slices.Contains(resp.Labels, d.Label) {
			resp.Labels = append(resp.Labels, d.Label)
		}
	}
	respondJSON(w, resp, http.StatusOK)
}

// statsResponse is the server-side equivalent of the statistics page data.
type statsResponse struct {
	Summary reconcile.Summary        `json:"summary"`
	Records []reconcile.ChangeRecord `json:"records"`
}

func (s *Server) stats(f reconcile.RecordFilter) statsResponse {
	original, working := s.deps.Store.Snapshot()
	records := reconcile.ComputeCorrectionLog(original, working, s.deps.Match)
	records = reconcile.FilterRecords(records, original, working, f)
	return statsResponse{
		Summary: reconcile.Summarize(records, working),
		Records: records,
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	respondJSON(w, s.stats(reconcile.RecordFilter{
		Category: q.Get("category"),
		Label:    q.Get("label"),
	}), http.StatusOK)
}

// statsMessage is what the hub pushes to websocket clients.
type statsMessage struct {
	Type    string            `json:"type"`
	Summary reconcile.Summary `json:"summary"`
}

func (s *Server) statsMessage() (interface{}, error) {
	return statsMessage{Type: "stats", Summary: s.stats(reconcile.RecordFilter{}).Summary}, nil
}
