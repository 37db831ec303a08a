package imaging

import (
	"fmt"
	"image"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
)

// HSLColor is a color in HSL space: hue in degrees, saturation and lightness
// in percent.
type HSLColor struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// ColorFrequency is a quantized color and the share of pixels that have it.
type ColorFrequency struct {
	Hex        string   `json:"hex"`
	Percentage float64  `json:"percentage"`
	HSL        HSLColor `json:"hsl"`
}

// DominantColors returns up to count of the most common colors inside box,
// most common first.
//
// Each 8-bit channel is quantized to a multiple of 16 before counting, so
// colors within 16 units per channel are grouped together. Ties are broken
// by hex value so the result is deterministic.
func DominantColors(img image.Image, box annotation.BBox, count int) ([]ColorFrequency, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("colors %s: %w", box, annotation.ErrInvalidBBox)
	}
	if count <= 0 {
		count = 5
	}
	r := PixelRect(box, 0, img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("color region %s outside image bounds", box)
	}

	counts := make(map[colorful.Color]int)
	total := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			q := colorful.Color{
				R: float64((cr>>8)/16*16) / 255,
				G: float64((cg>>8)/16*16) / 255,
				B: float64((cb>>8)/16*16) / 255,
			}
			counts[q]++
			total++
		}
	}

	colors := make([]ColorFrequency, 0, len(counts))
	for c, n := range counts {
		h, s, l := c.Hsl()
		colors = append(colors, ColorFrequency{
			Hex:        c.Hex(),
			Percentage: float64(n) / float64(total) * 100,
			HSL:        HSLColor{H: int(h + 0.5), S: int(s*100 + 0.5), L: int(l*100 + 0.5)},
		})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Percentage != colors[j].Percentage {
			return colors[i].Percentage > colors[j].Percentage
		}
		return colors[i].Hex < colors[j].Hex
	})
	if len(colors) > count {
		colors = colors[:count]
	}
	return colors, nil
}
