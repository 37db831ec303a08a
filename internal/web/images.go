package web

import (
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
	"github.com/ironsheep/bbox-annotator/internal/imaging"
	"github.com/ironsheep/bbox-annotator/internal/store"
)

// queryFloat reads an optional float parameter.
func queryFloat(q url.Values, key string) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadQuery, key, v)
	}
	return f, nil
}

// queryInt reads an optional non-negative integer parameter.
func queryInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errBadQuery, key, v)
	}
	return n, nil
}

func (s *Server) loadImage(file string) (image.Image, error) {
	if s.deps.Loader == nil {
		return nil, fmt.Errorf("no image directory configured")
	}
	return s.deps.Loader.Load(file)
}

// target loads the image named in the path and the detection it names.
func (s *Server) target(r *http.Request) (image.Image, annotation.Detection, error) {
	file := r.PathValue("file")
	det, err := s.deps.Store.Detection(file, r.PathValue("id"))
	if err != nil {
		return nil, det, err
	}
	img, err := s.loadImage(file)
	if err != nil {
		return nil, det, err
	}
	return img, det, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	respondError(w, err.Error(), status)
}

func (s *Server) handleImageInfo(w http.ResponseWriter, r *http.Request) {
	if s.deps.Loader == nil {
		s.fail(w, r, fmt.Errorf("no image directory configured"))
		return
	}
	info, err := s.deps.Loader.Info(r.PathValue("file"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, info, http.StatusOK)
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	q := r.URL.Query()

	thickness, err := queryInt(q, "thickness")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	maxW, err := queryInt(q, "max_width")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	maxH, err := queryInt(q, "max_height")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	grid, err := queryInt(q, "grid")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var gridColor color.Color
	if v := q.Get("grid_color"); v != "" {
		c, err := imaging.ParseColor(v)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: %w", errBadQuery, err))
			return
		}
		gridColor = c
	}

	im, ok := s.deps.Store.Image(file)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", store.ErrImageNotFound, file))
		return
	}
	img, err := s.loadImage(file)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := imaging.Overlay(img, im.Detections, s.palette(), imaging.OverlayOptions{
		Thickness:   thickness,
		HideLabels:  q.Get("hide_labels") == "true",
		GridSpacing: grid,
		GridColor:   gridColor,
	})
	respondPNG(w, imaging.Thumbnail(out, maxW, maxH))
}

func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scale, err := queryFloat(q, "scale")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if scale < 0 || scale > imaging.MaxScale {
		s.fail(w, r, fmt.Errorf("%w: scale %g outside (0, %g]", errBadQuery, scale, imaging.MaxScale))
		return
	}
	padding, err := queryInt(q, "padding")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	img, det, err := s.target(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	crop, err := imaging.CropBox(img, det.BBox, padding, scale)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondPNG(w, crop)
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	dim, err := queryFloat(r.URL.Query(), "dim")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	img, det, err := s.target(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := imaging.Highlight(img, det.BBox, dim, s.palette().Color(det.Category))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondPNG(w, out)
}

func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r.URL.Query(), "count")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	img, det, err := s.target(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	colors, err := imaging.DominantColors(img, det.BBox, count)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, map[string]interface{}{
		"detection": det,
		"colors":    colors,
	}, http.StatusOK)
}
