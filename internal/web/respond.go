package web

import (
	"encoding/json"
	"errors"
	"image"
	"io/fs"
	"net/http"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
	"github.com/ironsheep/bbox-annotator/internal/imaging"
	"github.com/ironsheep/bbox-annotator/internal/store"
)

// errorBody is the envelope for every failed request.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, errorBody{Success: false, Error: message}, status)
}

// respondPNG encodes img and writes it with an image/png content type.
func respondPNG(w http.ResponseWriter, img image.Image) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrImageNotFound),
		errors.Is(err, store.ErrDetectionNotFound),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidDetection),
		errors.Is(err, annotation.ErrInvalidBBox),
		errors.Is(err, imaging.ErrInvalidPath),
		errors.Is(err, errBadQuery):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
