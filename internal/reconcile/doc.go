// Package reconcile compares an original and a working set of detections and
// classifies the differences as change records for the statistics views.
//
// # Matching
//
// Detections have no identity that survives the labelling pipeline, so pairs
// are found geometrically by Intersection-over-Union:
//
//  1. IoU is computed for every (original, working) pair of one image.
//  2. Each original detection, in list order, takes the unmatched working
//     detection with the highest IoU; ties go to the lowest working index.
//     The pair is kept when its IoU exceeds the threshold (default 0.3).
//  3. Unmatched originals become removals, unmatched working detections
//     become additions.
//
// This greedy pass is a heuristic, not an optimal assignment: an early
// original can claim a box that a later original overlaps more, and the
// result depends on list order. StrategyExact instead solves the assignment
// problem with the Hungarian algorithm, maximising the summed IoU over pairs
// above the threshold.
//
// # Records
//
// A matched pair yields a label_change record when the labels differ and a
// bbox_adjust record when any coordinate moved by more than the tolerance
// (1e-4). Both can fire for the same pair. Identical sets produce no records.
//
// Images are reconciled independently; boxes are never matched across images.
//
// # Degenerate Input
//
// Inverted or zero-area boxes have an IoU of 0 with everything, so they never
// match and surface as a removal/addition pair. Nothing in this package
// returns an error for well-formed JSON input.
package reconcile
