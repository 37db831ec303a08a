package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

// MaxScale bounds the upscaling factor accepted by CropBox.
const MaxScale = 8.0

// EncodedImage is a PNG image ready to be returned over JSON.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode encodes img as a base64 PNG.
func Encode(img image.Image) (*EncodedImage, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

// PixelRect converts a detection box to the integer pixel rectangle covering
// it, grown by padding on every side and clipped to bounds. The result is
// empty when the box lies outside the image.
func PixelRect(box annotation.BBox, padding int, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(math.Floor(box.X1()))-padding,
		int(math.Floor(box.Y1()))-padding,
		int(math.Ceil(box.X2()))+padding,
		int(math.Ceil(box.Y2()))+padding,
	)
	return r.Intersect(bounds)
}

// CropBox extracts the region of img covered by box, grown by padding pixels
// and optionally resized by scale.
//
// The box is clipped to the image first, so boxes that spill over the edge
// still crop. A box that does not overlap the image at all is an error, as is
// a scale outside (0, MaxScale]. A zero scale means 1.
func CropBox(img image.Image, box annotation.BBox, padding int, scale float64) (image.Image, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("crop %s: %w", box, annotation.ErrInvalidBBox)
	}
	if scale == 0 {
		scale = 1
	}
	if scale < 0 || scale > MaxScale {
		return nil, fmt.Errorf("scale %g outside (0, %g]", scale, MaxScale)
	}
	if padding < 0 {
		padding = 0
	}

	r := PixelRect(box, padding, img.Bounds())
	if r.Empty() {
		bounds := img.Bounds()
		return nil, fmt.Errorf("crop region %s outside image bounds (%d,%d)-(%d,%d)",
			box, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	cropped := imaging.Crop(img, r)
	if scale != 1 {
		w := max(1, int(float64(cropped.Bounds().Dx())*scale))
		h := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, w, h, imaging.Lanczos)
	}
	return cropped, nil
}
