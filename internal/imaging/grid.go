package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultGridColor is a semi-transparent red that shows on most artworks.
var DefaultGridColor = color.NRGBA{R: 255, A: 128}

// ParseColor parses "#rrggbb" into an opaque color.
func ParseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// drawGrid draws a line every spacing image pixels across dst. With labels,
// each vertical line is tagged with its x coordinate along the top edge and
// each horizontal line with its y coordinate along the left edge.
func drawGrid(dst *image.RGBA, spacing int, c color.Color, labels bool) {
	if spacing <= 0 {
		return
	}
	if c == nil {
		c = DefaultGridColor
	}
	b := dst.Bounds()
	src := image.NewUniform(c)

	for x := b.Min.X + spacing; x < b.Max.X; x += spacing {
		draw.Draw(dst, image.Rect(x, b.Min.Y, x+1, b.Max.Y), src, image.Point{}, draw.Over)
	}
	for y := b.Min.Y + spacing; y < b.Max.Y; y += spacing {
		draw.Draw(dst, image.Rect(b.Min.X, y, b.Max.X, y+1), src, image.Point{}, draw.Over)
	}

	if !labels {
		return
	}
	for x := b.Min.X + spacing; x < b.Max.X; x += spacing {
		drawCoordinate(dst, image.Pt(x+2, b.Min.Y+1), x-b.Min.X)
	}
	for y := b.Min.Y + spacing; y < b.Max.Y; y += spacing {
		drawCoordinate(dst, image.Pt(b.Min.X+1, y+2), y-b.Min.Y)
	}
}

// drawCoordinate writes v in white on a dark backing with its top-left
// corner at at.
func drawCoordinate(dst *image.RGBA, at image.Point, v int) {
	face := basicfont.Face7x13
	text := strconv.Itoa(v)
	width := font.MeasureString(face, text).Ceil() + 2
	height := face.Metrics().Height.Ceil()

	box := image.Rect(at.X, at.Y, at.X+width, at.Y+height).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(color.NRGBA{A: 180}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(at.X+1, at.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}
