package imaging

import (
	"image"
	"image/color"
	"regexp"
	"testing"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

func sameRGB(a, b color.Color) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	return ar>>8 == br>>8 && ag>>8 == bg>>8 && ab>>8 == bb>>8
}

func TestPalette_Deterministic(t *testing.T) {
	a := NewPalette([]string{"Animals", "Weapons & Tools", "Food"})
	b := NewPalette([]string{"Food", "Animals", "Weapons & Tools", "Animals"})

	for _, cat := range []string{"Animals", "Food", "Weapons & Tools", "Unknown"} {
		if a.Hex(cat) != b.Hex(cat) {
			t.Errorf("%s: %s vs %s", cat, a.Hex(cat), b.Hex(cat))
		}
	}
	if len(b.Entries()) != 3 {
		t.Errorf("Entries: got %d, want 3 after dedupe", len(b.Entries()))
	}
}

func TestPalette_DistinctColors(t *testing.T) {
	cats := []string{"Animals", "Food", "Miscellaneous", "People", "Weapons & Tools"}
	p := NewPalette(cats)

	hexRe := regexp.MustCompile(`^#[0-9a-f]{6}$`)
	seen := map[string]string{}
	for _, e := range p.Entries() {
		if !hexRe.MatchString(e.Color) {
			t.Errorf("%s: malformed color %q", e.Name, e.Color)
		}
		if other, dup := seen[e.Color]; dup {
			t.Errorf("%s and %s share color %s", e.Name, other, e.Color)
		}
		seen[e.Color] = e.Name
	}
	if p.Entries()[0].Name != "Animals" {
		t.Errorf("Entries not sorted: %+v", p.Entries())
	}
}

func TestOverlay(t *testing.T) {
	bg := color.RGBA{10, 10, 10, 255}
	img := createInMemoryImage(120, 120, bg)
	p := NewPalette([]string{"Animals"})
	dets := []annotation.Detection{
		{Label: "dog", Category: "Animals", BBox: annotation.BBox{40, 40, 100, 100}},
		{Label: "ghost", Category: "Animals", BBox: annotation.BBox{500, 500, 600, 600}},
	}

	out := Overlay(img, dets, p, OverlayOptions{HideLabels: true})

	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	want := p.Color("Animals")
	for _, pt := range []image.Point{{40, 40}, {99, 70}, {70, 99}, {41, 60}} {
		if !sameRGB(out.At(pt.X, pt.Y), want) {
			t.Errorf("outline pixel %v: got %v, want %v", pt, out.At(pt.X, pt.Y), want)
		}
	}
	if !sameRGB(out.At(70, 70), bg) {
		t.Errorf("box interior changed: %v", out.At(70, 70))
	}
	if !sameRGB(out.At(10, 10), bg) {
		t.Errorf("pixel outside boxes changed: %v", out.At(10, 10))
	}
	if !sameRGB(img.At(40, 40), bg) {
		t.Error("Overlay modified its input")
	}
}

func TestOverlay_Labels(t *testing.T) {
	bg := color.RGBA{10, 10, 10, 255}
	img := createInMemoryImage(200, 200, bg)
	p := NewPalette([]string{"Animals"})
	dets := []annotation.Detection{
		{Label: "dog", Category: "Animals", BBox: annotation.BBox{50, 100, 150, 150}},
	}

	out := Overlay(img, dets, p, OverlayOptions{})

	// The tag sits above the box and starts with the category color.
	if !sameRGB(out.At(51, 90), p.Color("Animals")) && !sameRGB(out.At(51, 90), p.TextColor("Animals")) {
		t.Errorf("no label tag above box: %v", out.At(51, 90))
	}
	if sameRGB(out.At(60, 110), p.Color("Animals")) {
		t.Error("label should not be drawn inside the box when there is room above")
	}
}

func TestHighlight(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{200, 200, 200, 255})
	box := annotation.BBox{30, 30, 70, 70}
	outline := color.RGBA{255, 0, 0, 255}

	out, err := Highlight(img, box, 0.5, outline)
	if err != nil {
		t.Fatalf("Highlight failed: %v", err)
	}

	inside := out.At(50, 50)
	outside := out.At(5, 5)
	ir, _, _, _ := inside.RGBA()
	or, _, _, _ := outside.RGBA()
	if ir>>8 != 200 {
		t.Errorf("inside pixel changed: %v", inside)
	}
	if or>>8 >= 200 {
		t.Errorf("outside pixel not dimmed: %v", outside)
	}
	if !sameRGB(out.At(30, 50), outline) {
		t.Errorf("outline missing: %v", out.At(30, 50))
	}
}

func TestHighlight_Errors(t *testing.T) {
	img := createInMemoryImage(50, 50, color.White)

	if _, err := Highlight(img, annotation.BBox{10, 10, 5, 5}, 0.5, color.Black); err == nil {
		t.Error("expected error for inverted box")
	}
	if _, err := Highlight(img, annotation.BBox{60, 60, 70, 70}, 0.5, color.Black); err == nil {
		t.Error("expected error for box outside the image")
	}
}

func TestThumbnail(t *testing.T) {
	img := createInMemoryImage(400, 200, color.White)

	tests := []struct {
		name         string
		maxW, maxH   int
		wantW, wantH int
	}{
		{"width bound", 100, 100, 100, 50},
		{"height bound", 1000, 50, 100, 50},
		{"already small", 500, 500, 400, 200},
		{"no limit", 0, 0, 400, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Thumbnail(img, tt.maxW, tt.maxH)
			if b := got.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}
