// Package annotation defines the detection records shared by the editor, the
// statistics engine, and the HTTP layer.
//
// A Detection is an axis-aligned box in original-image pixel coordinates with a
// label and a category. Detections are value records: the editor replaces them
// rather than mutating fields in place through shared pointers.
//
// # Coordinate System
//
// Boxes use the [x1, y1, x2, y2] convention with the origin at the top-left
// corner of the image:
//   - X increases rightward, Y increases downward
//   - A valid box has x1 < x2 and y1 < y2
//   - Coordinates are floating point; resized boxes rarely land on whole pixels
//
// # Identity
//
// Every detection carries an opaque ID (a random UUID). The ID is the only
// identity used when a box is renamed, resized, or deleted. The position of a
// detection inside its image's slice is a rendering convenience and must not be
// used to address it.
//
// # Categories
//
// Detections without a category belong to "Miscellaneous". The default is
// applied at the boundary by Normalize, when data is loaded or received, so the
// statistics code can assume every detection has one.
package annotation
