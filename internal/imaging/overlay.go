package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

// OverlayOptions control how detections are drawn.
type OverlayOptions struct {
	// Thickness is the outline width in pixels. Zero means 3.
	Thickness int

	// HideLabels skips the label tags above each box.
	HideLabels bool

	// GridSpacing, when positive, draws a coordinate grid under the boxes
	// with a line every GridSpacing image pixels.
	GridSpacing int

	// GridColor is the grid line color. Nil means DefaultGridColor.
	GridColor color.Color
}

// Overlay returns a copy of img with every detection outlined in its category
// color and tagged with its label.
func Overlay(img image.Image, dets []annotation.Detection, palette *Palette, opts OverlayOptions) *image.RGBA {
	if opts.Thickness <= 0 {
		opts.Thickness = 3
	}
	if palette == nil {
		palette = NewPalette(nil)
	}

	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)
	drawGrid(out, opts.GridSpacing, opts.GridColor, !opts.HideLabels)

	for _, d := range dets {
		r := PixelRect(d.BBox, 0, bounds)
		if r.Empty() {
			continue
		}
		drawOutline(out, r, opts.Thickness, palette.Color(d.Category))
	}
	if !opts.HideLabels {
		for _, d := range dets {
			r := PixelRect(d.BBox, 0, bounds)
			if r.Empty() {
				continue
			}
			drawTag(out, r.Min, d.Label, palette.Color(d.Category), palette.TextColor(d.Category))
		}
	}
	return out
}

// drawOutline strokes r from the inside so the outline never leaves it.
func drawOutline(dst *image.RGBA, r image.Rectangle, thickness int, c color.Color) {
	src := image.NewUniform(c)
	t := min(thickness, r.Dx()/2+1, r.Dy()/2+1)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

// drawTag draws text on a filled background just above at, or just inside
// the box when there is no room above it.
func drawTag(dst *image.RGBA, at image.Point, text string, bg, fg color.Color) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	const pad = 2
	width := font.MeasureString(face, text).Ceil() + 2*pad
	height := face.Metrics().Height.Ceil() + 2*pad

	top := at.Y - height
	if top < dst.Bounds().Min.Y {
		top = at.Y
	}
	box := image.Rect(at.X, top, at.X+width, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(at.X+pad, top+pad+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}
