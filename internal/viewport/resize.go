package viewport

import (
	"fmt"
	"math"
	"strings"
)

// MinBoxSize is the smallest width or height, in screen pixels, that a box may
// be resized to or created with.
const MinBoxSize = 10.0

// Handle names a resize grip by compass direction.
type Handle string

// Corner and edge handles. The editor shows the corners; edge handles follow
// the same rules along a single axis.
const (
	HandleNW Handle = "nw"
	HandleNE Handle = "ne"
	HandleSW Handle = "sw"
	HandleSE Handle = "se"
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
)

// ParseHandle validates a handle name.
func ParseHandle(s string) (Handle, error) {
	switch h := Handle(strings.ToLower(strings.TrimSpace(s))); h {
	case HandleNW, HandleNE, HandleSW, HandleSE, HandleN, HandleS, HandleE, HandleW:
		return h, nil
	}
	return "", fmt.Errorf("unknown resize handle: %q", s)
}

func (h Handle) has(dir byte) bool {
	return strings.IndexByte(string(h), dir) >= 0
}

// Resize applies a drag of (dx, dy) screen pixels on handle h to the
// rectangle the box had when the drag started.
//
// East handles grow the width by dx; west handles shrink it and move the left
// edge by dx. South and north handles do the same vertically. Width and height
// never drop below MinBoxSize.
func Resize(start Rect, h Handle, dx, dy float64) Rect {
	r := start
	if h.has('e') {
		r.Width = math.Max(MinBoxSize, start.Width+dx)
	}
	if h.has('s') {
		r.Height = math.Max(MinBoxSize, start.Height+dy)
	}
	if h.has('w') {
		r.Width = math.Max(MinBoxSize, start.Width-dx)
		r.Left = start.Left + dx
	}
	if h.has('n') {
		r.Height = math.Max(MinBoxSize, start.Height-dy)
		r.Top = start.Top + dy
	}
	return r
}

// NormalizeRect returns the rectangle spanned by two corner points.
func NormalizeRect(a, b Point) Rect {
	return Rect{
		Left:   math.Min(a.X, b.X),
		Top:    math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// LargeEnough reports whether a drawn rectangle exceeds MinBoxSize in both
// dimensions. Boxes at or below the limit are discarded rather than created.
func LargeEnough(r Rect) bool {
	return r.Width > MinBoxSize && r.Height > MinBoxSize
}
