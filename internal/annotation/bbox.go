package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBBox is returned when a box does not satisfy x1 < x2 and y1 < y2.
var ErrInvalidBBox = errors.New("invalid bounding box")

// BBox is an axis-aligned box [x1, y1, x2, y2] in image pixel coordinates.
//
// It encodes to JSON as a four-element array, matching the detection files
// produced by the labelling pipeline.
type BBox [4]float64

// NewBBox builds a box from its top-left corner and size.
func NewBBox(x, y, width, height float64) BBox {
	return BBox{x, y, x + width, y + height}
}

// X1 returns the left edge.
func (b BBox) X1() float64 { return b[0] }

// Y1 returns the top edge.
func (b BBox) Y1() float64 { return b[1] }

// X2 returns the right edge.
func (b BBox) X2() float64 { return b[2] }

// Y2 returns the bottom edge.
func (b BBox) Y2() float64 { return b[3] }

// Width returns x2 - x1. Inverted boxes report a negative width.
func (b BBox) Width() float64 { return b[2] - b[0] }

// Height returns y2 - y1. Inverted boxes report a negative height.
func (b BBox) Height() float64 { return b[3] - b[1] }

// Area returns width * height, or 0 for degenerate and inverted boxes.
func (b BBox) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Valid reports whether the box has positive width and height and finite
// coordinates.
func (b BBox) Valid() bool {
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b[0] < b[2] && b[1] < b[3]
}

// Canon returns the box with its corners ordered so that x1 <= x2 and y1 <= y2.
func (b BBox) Canon() BBox {
	x1, x2 := math.Min(b[0], b[2]), math.Max(b[0], b[2])
	y1, y2 := math.Min(b[1], b[3]), math.Max(b[1], b[3])
	return BBox{x1, y1, x2, y2}
}

// Intersect returns the overlapping region of b and o. The result is not valid
// when the boxes do not overlap.
func (b BBox) Intersect(o BBox) BBox {
	return BBox{
		math.Max(b[0], o[0]),
		math.Max(b[1], o[1]),
		math.Min(b[2], o[2]),
		math.Min(b[3], o[3]),
	}
}

// Differs reports whether any coordinate of b differs from o by more than tol.
func (b BBox) Differs(o BBox, tol float64) bool {
	for i := range b {
		if math.Abs(b[i]-o[i]) > tol {
			return true
		}
	}
	return false
}

// String formats the box as "[x1, y1, x2, y2]".
func (b BBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b[0], b[1], b[2], b[3])
}

// UnmarshalJSON accepts exactly four numbers.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("bbox: want 4 coordinates, got %d", len(coords))
	}
	copy(b[:], coords)
	return nil
}
