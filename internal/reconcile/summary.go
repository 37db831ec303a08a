package reconcile

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

// TopImageCount is the number of images reported in Summary.TopImages.
const TopImageCount = 5

// LabelCount is a label with an occurrence count.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LabelFlow counts label changes from one label to another.
type LabelFlow struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// ImageCount is an image with the number of corrections made to it.
type ImageCount struct {
	ImageID string `json:"image_id"`
	Count   int    `json:"count"`
}

// Summary aggregates a correction log over an image set.
type Summary struct {
	TotalImages     int     `json:"total_images"`
	TotalDetections int     `json:"total_detections"`
	AvgDetections   float64 `json:"avg_detections"`
	UniqueLabels    int     `json:"unique_labels"`
	TotalChanges    int     `json:"total_changes"`

	Added       []LabelCount       `json:"added"`
	Removed     []LabelCount       `json:"removed"`
	Adjusted    []LabelCount       `json:"adjusted"`
	LabelFlows  []LabelFlow        `json:"label_flows"`
	TopImages   []ImageCount       `json:"top_images"`
	ChangeTypes map[ChangeType]int `json:"change_types"`
}

// Summarize computes statistics for records over images, normally the
// working set. Undone records are ignored.
func Summarize(records []ChangeRecord, images []annotation.ImageDetections) Summary {
	s := Summary{
		TotalImages: len(images),
		ChangeTypes: map[ChangeType]int{},
	}

	labels := make(map[string]struct{})
	perImage := make([]float64, len(images))
	for i, im := range images {
		perImage[i] = float64(len(im.Detections))
		s.TotalDetections += len(im.Detections)
		for _, d := range im.Detections {
			labels[d.Label] = struct{}{}
		}
	}
	s.UniqueLabels = len(labels)
	if len(perImage) > 0 {
		s.AvgDetections = stat.Mean(perImage, nil)
	}

	added := map[string]int{}
	removed := map[string]int{}
	adjusted := map[string]int{}
	flows := map[[2]string]int{}
	byImage := map[string]int{}

	for _, r := range records {
		if r.Undone {
			continue
		}
		s.TotalChanges++
		s.ChangeTypes[r.Type]++
		byImage[r.ImageID]++
		switch r.Type {
		case ChangeAdd:
			added[r.NewLabel]++
		case ChangeRemove:
			removed[r.OriginalLabel]++
		case ChangeBBoxAdjust:
			adjusted[r.OriginalLabel]++
		case ChangeLabelChange:
			flows[[2]string{r.OriginalLabel, r.NewLabel}]++
		}
	}

	s.Added = sortedCounts(added)
	s.Removed = sortedCounts(removed)
	s.Adjusted = sortedCounts(adjusted)

	s.LabelFlows = make([]LabelFlow, 0, len(flows))
	for k, n := range flows {
		s.LabelFlows = append(s.LabelFlows, LabelFlow{From: k[0], To: k[1], Count: n})
	}
	sort.Slice(s.LabelFlows, func(i, j int) bool {
		a, b := s.LabelFlows[i], s.LabelFlows[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})

	s.TopImages = make([]ImageCount, 0, len(byImage))
	for id, n := range byImage {
		s.TopImages = append(s.TopImages, ImageCount{ImageID: id, Count: n})
	}
	sort.Slice(s.TopImages, func(i, j int) bool {
		a, b := s.TopImages[i], s.TopImages[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ImageID < b.ImageID
	})
	if len(s.TopImages) > TopImageCount {
		s.TopImages = s.TopImages[:TopImageCount]
	}

	return s
}

// sortedCounts orders by descending count, then label.
func sortedCounts(m map[string]int) []LabelCount {
	out := make([]LabelCount, 0, len(m))
	for l, n := range m {
		out = append(out, LabelCount{Label: l, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
