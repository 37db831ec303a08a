// Package imaging loads artwork images and renders detections onto them.
//
// It provides a bounded image Loader, crops of a single detection, a
// category color Palette, box overlays with label tags, single-box
// highlights and dominant-color sampling. All operations work with standard
// Go image.Image values and the image pixel frame used by detection boxes:
// (0,0) is the top-left corner, X grows rightward and Y grows downward.
//
// # Coordinate System
//
// Detection boxes carry float coordinates. When a box is turned into pixels
// (PixelRect) it is widened to the smallest integer rectangle that covers it
// and then clipped to the image bounds, so boxes that spill slightly over an
// edge still render:
//   - (x1,y1) is inclusive (top-left)
//   - (x2,y2) is exclusive (bottom-right)
//
// # Thread Safety
//
// Loader is safe for concurrent use. Rendering functions never modify their
// input image and return a new one, so cached images can be shared freely
// between requests.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Degenerate boxes (wrapping annotation.ErrInvalidBBox)
//   - Boxes entirely outside the image
//   - Image names that escape the image directory (ErrInvalidPath)
//   - File I/O and decode errors during image loading
//
// # Performance Considerations
//
// Decoded artworks are large. The Loader keeps at most a fixed number of
// them, evicting the least recently used; size it with the number of images
// a reviewer moves between.
package imaging
