package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

func TestCropBox(t *testing.T) {
	img := createPatternImage(100, 100)

	tests := []struct {
		name         string
		box          annotation.BBox
		padding      int
		scale        float64
		wantW, wantH int
	}{
		{"exact", annotation.BBox{0, 0, 50, 50}, 0, 1, 50, 50},
		{"zero scale means one", annotation.BBox{0, 0, 50, 50}, 0, 0, 50, 50},
		{"fractional coords cover", annotation.BBox{10.2, 10.2, 19.8, 19.8}, 0, 1, 10, 10},
		{"padding", annotation.BBox{20, 20, 30, 30}, 5, 1, 20, 20},
		{"padding clipped", annotation.BBox{0, 0, 10, 10}, 5, 1, 15, 15},
		{"spills over edge", annotation.BBox{90, 90, 120, 120}, 0, 1, 10, 10},
		{"scale up", annotation.BBox{0, 0, 50, 50}, 0, 2, 100, 100},
		{"scale down", annotation.BBox{0, 0, 100, 100}, 0, 0.5, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CropBox(img, tt.box, tt.padding, tt.scale)
			if err != nil {
				t.Fatalf("CropBox failed: %v", err)
			}
			if b := got.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("dimensions: got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestCropBox_Errors(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name  string
		box   annotation.BBox
		scale float64
	}{
		{"inverted", annotation.BBox{50, 50, 10, 10}, 1},
		{"zero width", annotation.BBox{10, 10, 10, 50}, 1},
		{"outside image", annotation.BBox{200, 200, 300, 300}, 1},
		{"negative scale", annotation.BBox{0, 0, 10, 10}, -1},
		{"huge scale", annotation.BBox{0, 0, 10, 10}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropBox(img, tt.box, 0, tt.scale); err == nil {
				t.Error("CropBox should fail")
			}
		})
	}
}

func TestCropBox_VerifyContent(t *testing.T) {
	img := createPatternImage(100, 100)

	// Bottom-right quadrant is white.
	got, err := CropBox(img, annotation.BBox{50, 50, 100, 100}, 0, 1)
	if err != nil {
		t.Fatalf("CropBox failed: %v", err)
	}
	r, g, b, _ := got.At(10, 10).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("expected white, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestEncode(t *testing.T) {
	img := createPatternImage(40, 30)

	enc, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if enc.Width != 40 || enc.Height != 30 || enc.MimeType != "image/png" {
		t.Errorf("got %dx%d %s", enc.Width, enc.Height, enc.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if decoded.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Errorf("decoded bounds: got %v", decoded.Bounds())
	}
}

func TestPixelRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)

	tests := []struct {
		name    string
		box     annotation.BBox
		padding int
		want    image.Rectangle
	}{
		{"integral", annotation.BBox{10, 10, 20, 20}, 0, image.Rect(10, 10, 20, 20)},
		{"fractional", annotation.BBox{10.5, 10.5, 19.5, 19.5}, 0, image.Rect(10, 10, 20, 20)},
		{"padded", annotation.BBox{10, 10, 20, 20}, 2, image.Rect(8, 8, 22, 22)},
		{"clipped", annotation.BBox{-10, 70, 50, 200}, 0, image.Rect(0, 70, 50, 80)},
		{"outside", annotation.BBox{200, 200, 210, 210}, 0, image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PixelRect(tt.box, tt.padding, bounds)
			if got != tt.want && !(got.Empty() && tt.want.Empty()) {
				t.Errorf("PixelRect(%v): got %v, want %v", tt.box, got, tt.want)
			}
		})
	}
}
