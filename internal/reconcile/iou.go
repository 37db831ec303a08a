package reconcile

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

// IoU returns the Intersection-over-Union of two boxes, in [0, 1]. It is 0
// when the boxes do not overlap or when either box is degenerate.
func IoU(a, b annotation.BBox) float64 {
	areaA, areaB := a.Area(), b.Area()
	inter := a.Intersect(b)
	interArea := math.Max(0, inter.Width()) * math.Max(0, inter.Height())
	if areaA == 0 || areaB == 0 {
		return 0
	}
	union := areaA + areaB - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

// IoUMatrix returns the len(original) x len(working) matrix of pairwise IoU
// values, or nil when either side is empty.
func IoUMatrix(original, working []annotation.Detection) *mat.Dense {
	if len(original) == 0 || len(working) == 0 {
		return nil
	}
	m := mat.NewDense(len(original), len(working), nil)
	for i, od := range original {
		for j, wd := range working {
			m.Set(i, j, IoU(od.BBox, wd.BBox))
		}
	}
	return m
}
