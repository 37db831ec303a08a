// Package store keeps the original and working detection sets in memory and
// persists the working set to disk.
//
// The original file is read once and never written. The working file is
// seeded from the original the first time the store is opened, and every
// update rewrites it atomically (temp file + rename) so a crash never leaves
// a truncated JSON document behind.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

// ErrImageNotFound is returned when an update names an image that is not in
// the working set.
var ErrImageNotFound = errors.New("image not found")

// ErrInvalidDetection is returned when an update carries a detection without
// a label or with a degenerate box.
var ErrInvalidDetection = errors.New("invalid detection")

// ErrDetectionNotFound is returned when a detection ID does not name a
// working detection of the image.
var ErrDetectionNotFound = errors.New("detection not found")

// Store holds both detection sets. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	original []annotation.ImageDetections
	working  []annotation.ImageDetections

	originalPath string
	workingPath  string
	logger       *slog.Logger

	listenersMu sync.Mutex
	listeners   []func()
}

// Open loads the original set from originalPath and the working set from
// workingPath, creating the working file from the original when it does not
// exist yet. Both sets are normalised and every detection gets an ID.
func Open(originalPath, workingPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	s := &Store{
		originalPath: originalPath,
		workingPath:  workingPath,
		logger:       logger,
	}

	original, err := readSet(originalPath)
	if err != nil {
		return nil, fmt.Errorf("load original detections: %w", err)
	}
	prepare(original)
	s.original = original

	working, err := readSet(workingPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("seeding working copy", "from", originalPath, "to", workingPath)
		s.working = cloneSet(original)
		if err := writeSet(workingPath, s.working); err != nil {
			return nil, fmt.Errorf("seed working copy: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load working detections: %w", err)
	default:
		if assigned := prepare(working); assigned > 0 {
			logger.Info("assigned detection ids", "count", assigned)
			if err := writeSet(workingPath, working); err != nil {
				return nil, fmt.Errorf("persist detection ids: %w", err)
			}
		}
		s.working = working
	}

	logger.Debug("store opened",
		"images", len(s.working),
		"original", originalPath,
		"working", workingPath)
	return s, nil
}

// OnChange registers fn to run after every successful update or reset. It is
// called without the store lock held.
func (s *Store) OnChange(fn func()) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *Store) notify() {
	s.listenersMu.Lock()
	fns := append([]func(){}, s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Original returns a copy of the original set.
func (s *Store) Original() []annotation.ImageDetections {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSet(s.original)
}

// Working returns a copy of the working set.
func (s *Store) Working() []annotation.ImageDetections {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSet(s.working)
}

// Snapshot returns copies of both sets taken under one lock.
func (s *Store) Snapshot() (original, working []annotation.ImageDetections) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSet(s.original), cloneSet(s.working)
}

// Image returns a copy of one working image.
func (s *Store) Image(file string) (annotation.ImageDetections, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	im, ok := annotation.Find(s.working, file)
	if !ok {
		return annotation.ImageDetections{}, false
	}
	return im.Clone(), true
}

// Detection returns one working detection by ID.
func (s *Store) Detection(file, id string) (annotation.Detection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	im, ok := annotation.Find(s.working, file)
	if !ok {
		return annotation.Detection{}, fmt.Errorf("%w: %s", ErrImageNotFound, file)
	}
	i := annotation.IndexOf(im.Detections, id)
	if i < 0 {
		return annotation.Detection{}, fmt.Errorf("%w: %s in %s", ErrDetectionNotFound, id, file)
	}
	return im.Detections[i], nil
}

// UpdateImage replaces the working detections of one image and persists the
// working set. The detections are normalised and given IDs before storing.
// If the write fails the in-memory set is left unchanged.
func (s *Store) UpdateImage(file string, dets []annotation.Detection) ([]annotation.Detection, error) {
	dets = append(make([]annotation.Detection, 0, len(dets)), dets...)
	annotation.Normalize(dets)
	annotation.EnsureIDs(dets)
	for i, d := range dets {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("%w: index %d: %w", ErrInvalidDetection, i, err)
		}
	}

	s.mu.Lock()
	idx := annotation.ImageIndex(s.working, file)
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, file)
	}

	prev := s.working[idx].Detections
	s.working[idx].Detections = dets
	if err := writeSet(s.workingPath, s.working); err != nil {
		s.working[idx].Detections = prev
		s.mu.Unlock()
		return nil, fmt.Errorf("save working copy: %w", err)
	}
	s.mu.Unlock()

	s.logger.Info("detections updated", "image", file, "count", len(dets))
	s.notify()
	return append(make([]annotation.Detection, 0, len(dets)), dets...), nil
}

// Reset discards every edit by copying the original set over the working set.
func (s *Store) Reset() error {
	s.mu.Lock()
	fresh := cloneSet(s.original)
	if err := writeSet(s.workingPath, fresh); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("reset working copy: %w", err)
	}
	s.working = fresh
	s.mu.Unlock()

	s.logger.Info("working copy reset", "images", len(fresh))
	s.notify()
	return nil
}

// Labels returns the sorted unique labels of the working set.
func (s *Store) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return annotation.Labels(s.working)
}

// Categories returns the sorted unique categories across both sets.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]annotation.ImageDetections, 0, len(s.original)+len(s.working))
	all = append(all, s.original...)
	all = append(all, s.working...)
	return annotation.Categories(all)
}

func prepare(set []annotation.ImageDetections) int {
	assigned := 0
	for i := range set {
		annotation.Normalize(set[i].Detections)
		assigned += annotation.EnsureIDs(set[i].Detections)
	}
	return assigned
}

func cloneSet(set []annotation.ImageDetections) []annotation.ImageDetections {
	out := make([]annotation.ImageDetections, len(set))
	for i, im := range set {
		out[i] = im.Clone()
	}
	return out
}

func readSet(path string) ([]annotation.ImageDetections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var set []annotation.ImageDetections
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if set == nil {
		set = []annotation.ImageDetections{}
	}
	return set, nil
}

// writeSet writes the set as indented JSON through a temp file in the same
// directory, then renames it into place.
func writeSet(path string, set []annotation.ImageDetections) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
