package viewport

import (
	"math"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

// Zoom limits and the per-notch wheel step.
const (
	MinZoom  = 0.1
	MaxZoom  = 5.0
	ZoomStep = 0.1
)

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + o.
func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }

// Sub returns p - o.
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ViewState is everything needed to map between screen and image space.
type ViewState struct {
	Pan             Point   `json:"pan_offset"`
	Zoom            float64 `json:"zoom_level"`
	Displayed       Size    `json:"displayed_size"`
	Natural         Size    `json:"natural_size"`
	Container       Size    `json:"container_size"`
	ContainerOrigin Point   `json:"container_origin"`
}

// NewViewState returns an unpanned view at zoom 1.
func NewViewState(natural, displayed, container Size) ViewState {
	return ViewState{
		Zoom:      1,
		Natural:   natural,
		Displayed: displayed,
		Container: container,
	}
}

// Ready reports whether the image has reported its natural size.
func (v ViewState) Ready() bool {
	return v.Natural.W > 0 && v.Natural.H > 0
}

// Scale returns the display scale in each axis, before zoom.
func (v ViewState) Scale() (sx, sy float64) {
	return v.Displayed.W / v.Natural.W, v.Displayed.H / v.Natural.H
}

// Offset returns the centring offset of the displayed image in its container.
func (v ViewState) Offset() Point {
	return Point{
		X: (v.Container.W - v.Displayed.W) / 2,
		Y: (v.Container.H - v.Displayed.H) / 2,
	}
}

// ContainerToImage maps a container-relative point to image pixels.
func (v ViewState) ContainerToImage(p Point) Point {
	sx, sy := v.Scale()
	off := v.Offset()
	return Point{
		X: (p.X - off.X - v.Pan.X) / (sx * v.Zoom),
		Y: (p.Y - off.Y - v.Pan.Y) / (sy * v.Zoom),
	}
}

// ImageToContainer maps image pixels to a container-relative point.
func (v ViewState) ImageToContainer(p Point) Point {
	sx, sy := v.Scale()
	off := v.Offset()
	return Point{
		X: off.X + p.X*sx*v.Zoom + v.Pan.X,
		Y: off.Y + p.Y*sy*v.Zoom + v.Pan.Y,
	}
}

// ScreenToImage maps a client point to image pixels.
func (v ViewState) ScreenToImage(p Point) Point {
	return v.ContainerToImage(p.Sub(v.ContainerOrigin))
}

// ImageToScreen maps image pixels to a client point. It is the inverse of
// ScreenToImage.
func (v ViewState) ImageToScreen(p Point) Point {
	return v.ImageToContainer(p).Add(v.ContainerOrigin)
}

// BoxToContainer returns the on-screen rectangle of an image-space box.
func (v ViewState) BoxToContainer(b annotation.BBox) Rect {
	sx, sy := v.Scale()
	tl := v.ImageToContainer(Point{b.X1(), b.Y1()})
	return Rect{
		Left:   tl.X,
		Top:    tl.Y,
		Width:  b.Width() * sx * v.Zoom,
		Height: b.Height() * sy * v.Zoom,
	}
}

// ContainerRectToImage converts an on-screen rectangle back to an image-space
// box.
func (v ViewState) ContainerRectToImage(r Rect) annotation.BBox {
	sx, sy := v.Scale()
	tl := v.ContainerToImage(Point{r.Left, r.Top})
	return annotation.NewBBox(tl.X, tl.Y, r.Width/(sx*v.Zoom), r.Height/(sy*v.Zoom))
}

// PanBy shifts the view by a screen-space delta.
func (v *ViewState) PanBy(dx, dy float64) {
	v.Pan.X += dx
	v.Pan.Y += dy
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	return math.Min(math.Max(z, MinZoom), MaxZoom)
}

// ZoomAt changes the zoom by delta while keeping the image point under the
// client point p fixed. It returns the resulting zoom level after clamping.
func (v *ViewState) ZoomAt(p Point, delta float64) float64 {
	next := ClampZoom(v.Zoom + delta)
	anchor := v.ScreenToImage(p)
	v.Zoom = next
	moved := v.ImageToScreen(anchor)
	v.Pan = v.Pan.Add(p.Sub(moved))
	return next
}

// WheelZoom applies one wheel notch at p. Positive deltaY (scrolling down)
// zooms out.
func (v *ViewState) WheelZoom(p Point, deltaY float64) float64 {
	step := ZoomStep
	if deltaY > 0 {
		step = -ZoomStep
	}
	return v.ZoomAt(p, step)
}
