package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of decoded images kept when NewLoader is
// given a non-positive size.
const DefaultCacheSize = 32

// ErrInvalidPath is returned for image names that would escape the image
// directory.
var ErrInvalidPath = errors.New("invalid image path")

// Loader decodes artwork images from a root directory and keeps the most
// recently used ones in memory.
//
// Loader is safe for concurrent use by multiple goroutines. The underlying
// LRU cache does its own locking, so two goroutines that miss on the same
// file at once may both decode it; the second Add simply replaces the first.
//
// # Example Usage
//
//	loader, err := imaging.NewLoader("static/artworks", 32)
//	if err != nil {
//	    return err
//	}
//	img, err := loader.Load("monet_01.jpg")
type Loader struct {
	root  string
	cache *lru.Cache[string, image.Image]
}

// NewLoader creates a loader for images under root, caching up to size
// decoded images.
func NewLoader(root string, size int) (*Loader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, image.Image](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}
	return &Loader{root: root, cache: cache}, nil
}

// Root returns the image directory.
func (l *Loader) Root() string {
	return l.root
}

// Resolve maps an image file name, as stored in the detection files, to a
// path under the loader's root. Absolute names and names containing ".."
// segments are rejected.
func (l *Loader) Resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(name)))
	if clean == "." || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(l.root, clean), nil
}

// Load returns the decoded image for name, reading it from disk on a cache
// miss. EXIF orientation is applied so that pixel coordinates match what a
// browser displays.
//
// # Errors
//
//   - ErrInvalidPath if name escapes the root
//   - a wrapped fs error if the file does not exist or cannot be read
//   - a decode error if the file is not a PNG, JPEG or GIF image
func (l *Loader) Load(name string) (image.Image, error) {
	path, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	if img, ok := l.cache.Get(path); ok {
		return img, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", name, err)
	}
	l.cache.Add(path, img)
	return img, nil
}

// Evict removes one image from the cache.
func (l *Loader) Evict(name string) {
	if path, err := l.Resolve(name); err == nil {
		l.cache.Remove(path)
	}
}

// Purge empties the cache.
func (l *Loader) Purge() {
	l.cache.Purge()
}

// Cached returns the number of images currently held in memory.
func (l *Loader) Cached() int {
	return l.cache.Len()
}

// ImageInfo contains metadata about an artwork image file.
type ImageInfo struct {
	ImageFile string `json:"image_file"`

	// Width and Height are the natural size in pixels after orientation.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif" or "unknown", from the file extension.
	Format string `json:"format"`

	FileSizeBytes int64  `json:"file_size_bytes"`
	FileSize      string `json:"file_size"`
}

// Info loads an image and returns its metadata.
func (l *Loader) Info(name string) (*ImageInfo, error) {
	img, err := l.Load(name)
	if err != nil {
		return nil, err
	}
	path, _ := l.Resolve(name)
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	b := img.Bounds()
	return &ImageInfo{
		ImageFile:     name,
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        format,
		FileSizeBytes: stat.Size(),
		FileSize:      humanize.Bytes(uint64(stat.Size())),
	}, nil
}

// Dimensions returns the natural width and height of an image.
func (l *Loader) Dimensions(name string) (width, height int, err error) {
	img, err := l.Load(name)
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}
