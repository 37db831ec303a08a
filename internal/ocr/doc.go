// Package ocr reads text inside detection boxes using Tesseract.
//
// Artworks often carry inscriptions, signatures and labels on objects. The
// Engine crops a detection out of the artwork, upscales short crops, and
// runs Tesseract (via gosseract/v2) on the result. Word boxes come back in
// the pixel frame of the full image so they can be drawn next to the
// detection.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Binaries built without cgo compile, but every call returns ErrUnavailable.
//
// # Error Handling
//
// ReadBox returns errors for:
//   - Degenerate boxes (wrapping annotation.ErrInvalidBBox)
//   - Boxes entirely outside the image
//   - Tesseract initialisation failures (wrapping ErrUnavailable)
//
// If word-level box extraction fails, ReadBox still returns the recognized
// text with an empty Words slice.
package ocr
