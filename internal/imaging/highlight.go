package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/transform"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

// DefaultDim is the brightness reduction applied outside a highlighted box.
const DefaultDim = 0.6

// Highlight darkens everything outside box by dim (0 to 1) and outlines the
// box, so a single detection stands out on a busy artwork.
func Highlight(img image.Image, box annotation.BBox, dim float64, c color.Color) (*image.RGBA, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("highlight %s: %w", box, annotation.ErrInvalidBBox)
	}
	if dim <= 0 || dim > 1 {
		dim = DefaultDim
	}
	r := PixelRect(box, 0, img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("highlight region %s outside image bounds", box)
	}

	out := adjust.Brightness(img, -dim)
	// bild results start at the origin.
	offset := img.Bounds().Min
	target := r.Sub(offset)
	draw.Draw(out, target, img, r.Min, draw.Src)
	drawOutline(out, target, 3, c)
	return out, nil
}

// Thumbnail scales img to fit within maxW x maxH, keeping the aspect ratio.
// Images already small enough are returned unchanged.
func Thumbnail(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	if maxW <= 0 || maxH <= 0 || (b.Dx() <= maxW && b.Dy() <= maxH) {
		return img
	}
	ratio := min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*ratio))
	h := max(1, int(float64(b.Dy())*ratio))
	return transform.Resize(img, w, h, transform.Linear)
}
