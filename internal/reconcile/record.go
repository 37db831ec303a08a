package reconcile

import "github.com/ironsheep/bbox-annotator/internal/annotation"

// ChangeType classifies a change record.
type ChangeType string

const (
	ChangeAdd         ChangeType = "add"
	ChangeRemove      ChangeType = "remove"
	ChangeLabelChange ChangeType = "label_change"
	ChangeBBoxAdjust  ChangeType = "bbox_adjust"
)

// ChangeRecord is one classified difference between the original and working
// detections of an image.
//
// Which label fields are set depends on Type:
//   - add: NewLabel
//   - remove: OriginalLabel
//   - label_change: OriginalLabel and NewLabel
//   - bbox_adjust: OriginalLabel
//
// BBox is the working box, except for removals where it is the original box.
type ChangeRecord struct {
	ImageID       string          `json:"imageId"`
	Type          ChangeType      `json:"type"`
	OriginalLabel string          `json:"originalLabel,omitempty"`
	NewLabel      string          `json:"newLabel,omitempty"`
	BBox          annotation.BBox `json:"bbox"`

	// Undone is reserved for undo support and is false on creation.
	Undone bool `json:"undone"`
}

// Label returns the label a record is filed under: the new label for
// additions, the original label otherwise.
func (c ChangeRecord) Label() string {
	if c.Type == ChangeAdd {
		return c.NewLabel
	}
	return c.OriginalLabel
}
