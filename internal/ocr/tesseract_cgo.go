//go:build cgo

package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// recognize runs Tesseract on a PNG-encoded crop and returns the full text
// with word boxes in crop coordinates.
func (e *Engine) recognize(png []byte) (string, []rawWord, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return "", nil, fmt.Errorf("%w: tessdata prefix: %v", ErrUnavailable, err)
		}
	}
	if err := client.SetLanguage(e.language); err != nil {
		return "", nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		// Text is the first call that initialises the engine, so a failure
		// here almost always means missing language data.
		return "", nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Keep the text even when word boxes are unavailable.
		return text, nil, nil
	}

	words := make([]rawWord, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, rawWord{
			Text:       b.Word,
			Confidence: float64(b.Confidence) / 100.0,
			Box:        b.Box,
		})
	}
	return text, words, nil
}

// Version returns the linked Tesseract version.
func Version() (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version(), nil
}
