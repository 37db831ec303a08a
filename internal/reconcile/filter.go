package reconcile

import "github.com/ironsheep/bbox-annotator/internal/annotation"

// RecordFilter narrows a correction log by category and label. Empty fields
// and annotation.FilterAll match everything.
type RecordFilter struct {
	Category string `json:"category,omitempty"`
	Label    string `json:"label,omitempty"`
}

func (f RecordFilter) active() bool {
	return !isAll(f.Category) || !isAll(f.Label)
}

// FilterRecords returns the records matching f.
//
// A record's category is looked up from the detection set its label lives
// in: the original set for removals and label changes, the working set for
// additions and bbox adjustments, with the other set as a fallback. The
// record's own image is searched first.
func FilterRecords(records []ChangeRecord, original, working []annotation.ImageDetections, f RecordFilter) []ChangeRecord {
	if !f.active() {
		return append(make([]ChangeRecord, 0, len(records)), records...)
	}

	out := make([]ChangeRecord, 0, len(records))
	for _, r := range records {
		label := r.Label()
		if !isAll(f.Label) && label != f.Label {
			continue
		}
		if !isAll(f.Category) {
			primary, fallback := working, original
			if r.Type == ChangeRemove || r.Type == ChangeLabelChange {
				primary, fallback = original, working
			}
			cat, ok := annotation.CategoryForLabel(primary, label, r.ImageID)
			if !ok {
				cat, ok = annotation.CategoryForLabel(fallback, label, r.ImageID)
			}
			if !ok || cat != f.Category {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func isAll(v string) bool {
	return v == "" || v == annotation.FilterAll
}
