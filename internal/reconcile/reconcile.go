package reconcile

import "github.com/ironsheep/bbox-annotator/internal/annotation"

// Reconcile returns the change records that turn original into working for
// one image. Records for matched pairs come first in original order, then
// removals in original order, then additions in working order.
func Reconcile(imageID string, original, working []annotation.Detection, opts Options) []ChangeRecord {
	opts = opts.withDefaults()
	a := Match(original, working, opts)
	return recordsFor(imageID, original, working, a, opts.Tolerance)
}

func recordsFor(imageID string, original, working []annotation.Detection, a Assignment, tol float64) []ChangeRecord {
	records := make([]ChangeRecord, 0)

	for _, p := range a.Pairs {
		od, wd := original[p.Original], working[p.Working]
		if od.Label != wd.Label {
			records = append(records, ChangeRecord{
				ImageID:       imageID,
				Type:          ChangeLabelChange,
				OriginalLabel: od.Label,
				NewLabel:      wd.Label,
				BBox:          wd.BBox,
			})
		}
		if od.BBox.Differs(wd.BBox, tol) {
			records = append(records, ChangeRecord{
				ImageID:       imageID,
				Type:          ChangeBBoxAdjust,
				OriginalLabel: od.Label,
				BBox:          wd.BBox,
			})
		}
	}

	for _, i := range a.UnmatchedOriginal {
		records = append(records, ChangeRecord{
			ImageID:       imageID,
			Type:          ChangeRemove,
			OriginalLabel: original[i].Label,
			BBox:          original[i].BBox,
		})
	}

	for _, j := range a.UnmatchedWorking {
		records = append(records, ChangeRecord{
			ImageID:  imageID,
			Type:     ChangeAdd,
			NewLabel: working[j].Label,
			BBox:     working[j].BBox,
		})
	}

	return records
}

// ComputeCorrectionLog reconciles every image of the original set with the
// working image of the same file name. Images present only in original
// contribute removals; images present only in working contribute additions.
// Records follow the original image order, then working-only images in
// working order.
func ComputeCorrectionLog(original, working []annotation.ImageDetections, opts Options) []ChangeRecord {
	opts = opts.withDefaults()

	byFile := make(map[string]int, len(working))
	for i, im := range working {
		if _, dup := byFile[im.ImageFile]; !dup {
			byFile[im.ImageFile] = i
		}
	}

	log := make([]ChangeRecord, 0)
	seen := make(map[string]bool, len(original))
	for _, oim := range original {
		if seen[oim.ImageFile] {
			continue
		}
		seen[oim.ImageFile] = true

		var wdets []annotation.Detection
		if j, ok := byFile[oim.ImageFile]; ok {
			wdets = working[j].Detections
		}
		log = append(log, Reconcile(oim.ImageFile, oim.Detections, wdets, opts)...)
	}

	for _, wim := range working {
		if seen[wim.ImageFile] {
			continue
		}
		seen[wim.ImageFile] = true
		log = append(log, Reconcile(wim.ImageFile, nil, wim.Detections, opts)...)
	}

	return log
}

// Active returns the records that have not been undone.
func Active(records []ChangeRecord) []ChangeRecord {
	out := make([]ChangeRecord, 0, len(records))
	for _, r := range records {
		if !r.Undone {
			out = append(out, r)
		}
	}
	return out
}
