package annotation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DefaultCategory is assigned to detections that arrive without a category.
const DefaultCategory = "Miscellaneous"

// Detection is a single labelled box on an image.
type Detection struct {
	// ID is an opaque identifier assigned at creation. Older detection files
	// have no IDs; EnsureIDs fills them in on load.
	ID string `json:"id,omitempty"`

	// Label is the object name, e.g. "horse" or "sword".
	Label string `json:"label"`

	// Category groups labels, e.g. "Animals" or "Weapons & Tools".
	Category string `json:"category"`

	// BBox is the box in original-image pixel coordinates.
	BBox BBox `json:"bbox"`
}

// NewDetection creates a detection with a fresh ID. An empty category becomes
// DefaultCategory.
func NewDetection(label, category string, box BBox) Detection {
	d := Detection{
		ID:       NewID(),
		Label:    strings.TrimSpace(label),
		Category: strings.TrimSpace(category),
		BBox:     box,
	}
	if d.Category == "" {
		d.Category = DefaultCategory
	}
	return d
}

// NewID returns a new random detection identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate checks that the detection has a label and a valid box.
func (d Detection) Validate() error {
	if strings.TrimSpace(d.Label) == "" {
		return fmt.Errorf("detection %q: empty label", d.ID)
	}
	if !d.BBox.Valid() {
		return fmt.Errorf("detection %q %s: %w", d.Label, d.BBox, ErrInvalidBBox)
	}
	return nil
}

// ImageDetections is the detection set for one image together with the
// artwork metadata used by the gallery filters.
type ImageDetections struct {
	ImageFile  string      `json:"image_file"`
	Detections []Detection `json:"detections"`

	Year     string `json:"Year,omitempty"`
	Artist   string `json:"Artist,omitempty"`
	Database string `json:"Database,omitempty"`
	Location string `json:"Location,omitempty"`
}

// Clone returns a deep copy so callers can edit detections without touching
// the source slice.
func (im ImageDetections) Clone() ImageDetections {
	out := im
	out.Detections = append(make([]Detection, 0, len(im.Detections)), im.Detections...)
	return out
}

// Normalize fills in DefaultCategory for detections without a category and
// trims surrounding whitespace from labels. It edits the slice in place.
func Normalize(dets []Detection) {
	for i := range dets {
		dets[i].Label = strings.TrimSpace(dets[i].Label)
		dets[i].Category = strings.TrimSpace(dets[i].Category)
		if dets[i].Category == "" {
			dets[i].Category = DefaultCategory
		}
	}
}

// EnsureIDs assigns a fresh ID to every detection that lacks one and replaces
// duplicated IDs within the slice. It returns the number of IDs assigned.
func EnsureIDs(dets []Detection) int {
	seen := make(map[string]bool, len(dets))
	assigned := 0
	for i := range dets {
		if dets[i].ID == "" || seen[dets[i].ID] {
			dets[i].ID = NewID()
			assigned++
		}
		seen[dets[i].ID] = true
	}
	return assigned
}

// IndexOf returns the position of the detection with the given ID, or -1.
func IndexOf(dets []Detection, id string) int {
	for i, d := range dets {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the image record with the given file name.
func Find(images []ImageDetections, imageFile string) (ImageDetections, bool) {
	for _, im := range images {
		if im.ImageFile == imageFile {
			return im, true
		}
	}
	return ImageDetections{}, false
}

// ImageIndex returns the position of the image record with the given file
// name, or -1.
func ImageIndex(images []ImageDetections, imageFile string) int {
	for i, im := range images {
		if im.ImageFile == imageFile {
			return i
		}
	}
	return -1
}

// Labels returns the sorted unique labels across all images.
func Labels(images []ImageDetections) []string {
	set := make(map[string]struct{})
	for _, im := range images {
		for _, d := range im.Detections {
			if d.Label != "" {
				set[d.Label] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// Categories returns the sorted unique categories across all images.
func Categories(images []ImageDetections) []string {
	set := make(map[string]struct{})
	for _, im := range images {
		for _, d := range im.Detections {
			if d.Category != "" {
				set[d.Category] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// CategoryForLabel returns the category used by an existing detection with
// the given label. Detections on preferImage are checked first so a label
// keeps the category it already has on the image being edited.
func CategoryForLabel(images []ImageDetections, label, preferImage string) (string, bool) {
	if im, ok := Find(images, preferImage); ok {
		for _, d := range im.Detections {
			if d.Label == label && d.Category != "" {
				return d.Category, true
			}
		}
	}
	for _, im := range images {
		for _, d := range im.Detections {
			if d.Label == label && d.Category != "" {
				return d.Category, true
			}
		}
	}
	return "", false
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
