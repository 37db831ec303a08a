package annotation

import "strings"

// FilterAll is the sentinel the gallery dropdowns send for "no filter".
const FilterAll = "all"

// Filter selects images by artwork metadata and detections by label/category.
// Empty fields and FilterAll match everything.
type Filter struct {
	Year     string
	Artist   string
	Database string
	Location string
	Category string
	Label    string
}

// Active reports whether any field narrows the result.
func (f Filter) Active() bool {
	for _, v := range []string{f.Year, f.Artist, f.Database, f.Location, f.Category, f.Label} {
		if !unset(v) {
			return true
		}
	}
	return false
}

// MatchesImage reports whether the image metadata passes the filter.
func (f Filter) MatchesImage(im ImageDetections) bool {
	return matches(f.Year, strings.TrimSpace(im.Year)) &&
		matches(f.Artist, im.Artist) &&
		matches(f.Database, im.Database) &&
		matches(f.Location, im.Location)
}

// MatchesDetection reports whether the detection passes the label and
// category filters.
func (f Filter) MatchesDetection(d Detection) bool {
	return matches(f.Label, d.Label) && matches(f.Category, d.Category)
}

// Apply returns the images that pass the metadata filters with their
// detections narrowed to those passing the label and category filters. When a
// label or category filter is set, images left without detections are dropped.
// The input is not modified.
func (f Filter) Apply(images []ImageDetections) []ImageDetections {
	detFilter := !unset(f.Label) || !unset(f.Category)
	out := make([]ImageDetections, 0, len(images))
	for _, im := range images {
		if !f.MatchesImage(im) {
			continue
		}
		kept := im.Clone()
		if detFilter {
			kept.Detections = kept.Detections[:0]
			for _, d := range im.Detections {
				if f.MatchesDetection(d) {
					kept.Detections = append(kept.Detections, d)
				}
			}
			if len(kept.Detections) == 0 {
				continue
			}
		}
		out = append(out, kept)
	}
	return out
}

func unset(v string) bool {
	return v == "" || v == FilterAll
}

func matches(want, got string) bool {
	return unset(want) || want == got
}
