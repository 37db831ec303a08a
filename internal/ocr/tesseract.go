package ocr

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
	"github.com/ironsheep/bbox-annotator/internal/imaging"
)

// ErrUnavailable is returned when the Tesseract engine cannot be used, either
// because the binary was built without cgo or because language data is
// missing.
var ErrUnavailable = errors.New("tesseract not available")

// DefaultLanguage is used when an Engine is created without a language.
const DefaultLanguage = "eng"

// minTextHeight is the crop height below which ReadBox upscales the crop.
// Tesseract does poorly on glyphs under roughly 20px.
const minTextHeight = 64

// Word is one recognized word inside a detection box.
type Word struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// BBox locates the word in the pixel frame of the whole image, not the
	// crop.
	BBox annotation.BBox `json:"bbox"`
}

// Result is the text found inside one detection box.
type Result struct {
	Text  string `json:"text"`
	Words []Word `json:"words"`

	// Scale is the factor the crop was resized by before recognition.
	Scale float64 `json:"scale"`
}

// Options tune ReadBox.
type Options struct {
	// Padding grows the box by this many pixels before cropping, so text
	// touching the box edge is not clipped.
	Padding int

	// MinConfidence drops words scored below it (0.0 to 1.0).
	MinConfidence float64
}

// Engine reads text from image regions. An Engine holds only settings; each
// call opens its own Tesseract client, so an Engine is safe for concurrent
// use.
type Engine struct {
	language       string
	tessdataPrefix string
}

// NewEngine returns an engine for the given Tesseract language code. An empty
// tessdataPrefix uses the system default location of the language data.
func NewEngine(language, tessdataPrefix string) *Engine {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return &Engine{language: language, tessdataPrefix: tessdataPrefix}
}

// Language returns the Tesseract language code.
func (e *Engine) Language() string {
	return e.language
}

// rawWord is a word as reported by the engine, in crop pixel coordinates.
type rawWord struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// ReadBox runs OCR on the part of img covered by box.
//
// The crop is upscaled when it is short, which helps with small inscriptions
// and signatures. Word boxes are mapped back to the image frame.
func (e *Engine) ReadBox(img image.Image, box annotation.BBox, opts Options) (*Result, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("ocr %s: %w", box, annotation.ErrInvalidBBox)
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}

	region := imaging.PixelRect(box, opts.Padding, img.Bounds())
	if region.Empty() {
		return nil, fmt.Errorf("ocr region %s outside image bounds", box)
	}
	scale := upscaleFor(region.Dy())

	crop, err := imaging.CropBox(img, box, opts.Padding, scale)
	if err != nil {
		return nil, err
	}
	data, err := imaging.EncodePNG(crop)
	if err != nil {
		return nil, err
	}

	text, raw, err := e.recognize(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:  strings.TrimSpace(text),
		Words: mapWords(raw, region.Min, scale, opts.MinConfidence),
		Scale: scale,
	}, nil
}

// upscaleFor returns the resize factor for a crop of the given height.
func upscaleFor(height int) float64 {
	if height <= 0 || height >= minTextHeight {
		return 1
	}
	return math.Min(4, math.Ceil(float64(minTextHeight)/float64(height)))
}

// mapWords converts crop-space words to image-space words, dropping empty
// and low-confidence ones.
func mapWords(raw []rawWord, origin image.Point, scale, minConfidence float64) []Word {
	words := make([]Word, 0, len(raw))
	for _, w := range raw {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Confidence < minConfidence {
			continue
		}
		words = append(words, Word{
			Text:       text,
			Confidence: w.Confidence,
			BBox: annotation.BBox{
				float64(origin.X) + float64(w.Box.Min.X)/scale,
				float64(origin.Y) + float64(w.Box.Min.Y)/scale,
				float64(origin.X) + float64(w.Box.Max.X)/scale,
				float64(origin.Y) + float64(w.Box.Max.Y)/scale,
			},
		})
	}
	return words
}
