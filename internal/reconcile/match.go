package reconcile

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

// Defaults used when Options fields are zero.
const (
	DefaultThreshold = 0.3
	DefaultTolerance = 1e-4
)

// Strategy selects the matching algorithm.
type Strategy string

const (
	// StrategyGreedy matches originals in list order to their best remaining
	// working box. This reproduces the statistics page's behaviour.
	StrategyGreedy Strategy = "greedy"

	// StrategyExact solves the assignment problem for the maximum total IoU.
	StrategyExact Strategy = "exact"
)

// ParseStrategy validates a strategy name. An empty name selects
// StrategyGreedy.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "", StrategyGreedy:
		return StrategyGreedy, nil
	case StrategyExact:
		return StrategyExact, nil
	}
	return "", fmt.Errorf("unknown matching strategy: %q", s)
}

// Options tune matching. The zero value selects greedy matching with the
// default threshold and tolerance.
type Options struct {
	// Threshold is the IoU a pair must exceed to match.
	Threshold float64 `json:"threshold,omitempty"`

	// Tolerance is the largest per-coordinate difference that does not count
	// as a bbox adjustment.
	Tolerance float64 `json:"tolerance,omitempty"`

	Strategy Strategy `json:"strategy,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Strategy == "" {
		o.Strategy = StrategyGreedy
	}
	return o
}

// Pair links an original detection to the working detection it matched.
type Pair struct {
	Original int     `json:"original"`
	Working  int     `json:"working"`
	IoU      float64 `json:"iou"`
}

// Assignment is the result of matching one image's detections. Every input
// index appears exactly once across Pairs and the two unmatched lists.
type Assignment struct {
	// Pairs are ordered by original index.
	Pairs []Pair `json:"pairs"`

	// UnmatchedOriginal and UnmatchedWorking are in ascending index order.
	UnmatchedOriginal []int `json:"unmatched_original"`
	UnmatchedWorking  []int `json:"unmatched_working"`
}

// Match pairs original detections with working detections of the same image.
func Match(original, working []annotation.Detection, opts Options) Assignment {
	opts = opts.withDefaults()
	ious := IoUMatrix(original, working)

	var pairs []Pair
	if ious != nil {
		switch opts.Strategy {
		case StrategyExact:
			pairs = matchExact(ious, opts.Threshold)
		default:
			pairs = matchGreedy(ious, opts.Threshold)
		}
	}
	return completeAssignment(pairs, len(original), len(working))
}

// matchGreedy visits originals in order and gives each the unmatched working
// detection with the highest IoU, the lowest index winning ties.
func matchGreedy(ious *mat.Dense, threshold float64) []Pair {
	rows, cols := ious.Dims()
	used := make([]bool, cols)
	var pairs []Pair

	for i := 0; i < rows; i++ {
		best, bestIoU := -1, 0.0
		for j := 0; j < cols; j++ {
			if used[j] {
				continue
			}
			if v := ious.At(i, j); best < 0 || v > bestIoU {
				best, bestIoU = j, v
			}
		}
		if best >= 0 && bestIoU > threshold {
			used[best] = true
			pairs = append(pairs, Pair{Original: i, Working: best, IoU: bestIoU})
		}
	}
	return pairs
}

// matchExact solves the assignment for maximum total IoU and keeps the pairs
// above the threshold. Pairs at or below it cost the same as leaving both
// detections unmatched, so they never displace a better pair.
func matchExact(ious *mat.Dense, threshold float64) []Pair {
	rows, cols := ious.Dims()
	n := max(rows, cols)
	cost := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := 1.0
			if i < rows && j < cols {
				if v := ious.At(i, j); v > threshold {
					c = 1 - v
				}
			}
			cost.Set(i, j, c)
		}
	}

	rowToCol := hungarian(cost)
	var pairs []Pair
	for i := 0; i < rows; i++ {
		j := rowToCol[i]
		if j < 0 || j >= cols {
			continue
		}
		if v := ious.At(i, j); v > threshold {
			pairs = append(pairs, Pair{Original: i, Working: j, IoU: v})
		}
	}
	return pairs
}

func completeAssignment(pairs []Pair, nOrig, nWork int) Assignment {
	origUsed := make([]bool, nOrig)
	workUsed := make([]bool, nWork)
	for _, p := range pairs {
		origUsed[p.Original] = true
		workUsed[p.Working] = true
	}

	a := Assignment{
		Pairs:             pairs,
		UnmatchedOriginal: []int{},
		UnmatchedWorking:  []int{},
	}
	if a.Pairs == nil {
		a.Pairs = []Pair{}
	}
	for i, used := range origUsed {
		if !used {
			a.UnmatchedOriginal = append(a.UnmatchedOriginal, i)
		}
	}
	for j, used := range workUsed {
		if !used {
			a.UnmatchedWorking = append(a.UnmatchedWorking, j)
		}
	}
	return a
}
