package imaging

import (
	"hash/fnv"
	"image/color"
	"slices"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette assigns each detection category a display color.
//
// Known categories are spread evenly around the HCL hue circle in sorted
// order, so the same category set always gives the same colors and
// neighbouring categories stay distinguishable. Categories added later get a
// hue derived from a hash of the name.
type Palette struct {
	colors map[string]colorful.Color
}

// Chroma and luminance shared by every palette color.
const (
	paletteChroma    = 0.65
	paletteLuminance = 0.6
)

// NewPalette builds a palette for the given categories.
func NewPalette(categories []string) *Palette {
	names := append([]string(nil), categories...)
	slices.Sort(names)
	names = slices.Compact(names)

	p := &Palette{colors: make(map[string]colorful.Color, len(names))}
	for i, name := range names {
		hue := 360 * float64(i) / float64(len(names))
		p.colors[name] = colorful.Hcl(hue, paletteChroma, paletteLuminance).Clamped()
	}
	return p
}

// Color returns the color for category.
func (p *Palette) Color(category string) color.RGBA {
	r, g, b := p.lookup(category).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Hex returns the color for category as "#rrggbb".
func (p *Palette) Hex(category string) string {
	return p.lookup(category).Hex()
}

// TextColor returns black or white, whichever reads better on the category
// color.
func (p *Palette) TextColor(category string) color.RGBA {
	l, _, _ := p.lookup(category).Lab()
	if l > 0.6 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}

// Entry is one category with its color.
type Entry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Entries lists the palette in category order.
func (p *Palette) Entries() []Entry {
	out := make([]Entry, 0, len(p.colors))
	for name, c := range p.colors {
		out = append(out, Entry{Name: name, Color: c.Hex()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (p *Palette) lookup(category string) colorful.Color {
	if c, ok := p.colors[category]; ok {
		return c
	}
	h := fnv.New32a()
	h.Write([]byte(category))
	hue := float64(h.Sum32()%360) + 0.5
	return colorful.Hcl(hue, paletteChroma, paletteLuminance).Clamped()
}
