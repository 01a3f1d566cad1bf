// Package report renders analysis results: CSV exports, PNG plots drawn
// with gonum/plot, and interactive HTML charts built with go-echarts.
package report

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// Qualitative colour schemes offered for plots.
var palettes = map[string][]string{
	"Plotly": {"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A", "#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52"},
	"Set1":   {"#E41A1C", "#377EB8", "#4DAF4A", "#984EA3", "#FF7F00", "#FFFF33", "#A65628", "#F781BF", "#999999"},
	"Set2":   {"#66C2A5", "#FC8D62", "#8DA0CB", "#E78AC3", "#A6D854", "#FFD92F", "#E5C494", "#B3B3B3"},
	"Set3":   {"#8DD3C7", "#FFFFB3", "#BEBADA", "#FB8072", "#80B1D3", "#FDB462", "#B3DE69", "#FCCDE5", "#D9D9D9", "#BC80BD", "#CCEBC5", "#FFED6F"},
	"D3":     {"#1F77B4", "#FF7F0E", "#2CA02C", "#D62728", "#9467BD", "#8C564B", "#E377C2", "#7F7F7F", "#BCBD22", "#17BECF"},
	"G10":    {"#3366CC", "#DC3912", "#FF9900", "#109618", "#990099", "#0099C6", "#DD4477", "#66AA00", "#B82E2E", "#316395"},
	"T10":    {"#4C78A8", "#F58518", "#E45756", "#72B7B2", "#54A24B", "#EECA3B", "#B279A2", "#FF9DA6", "#9D755D", "#BAB0AC"},
}

// Schemes returns the names of the built-in colour schemes, sorted.
func Schemes() []string {
	names := make([]string, 0, len(palettes))
	for k := range palettes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Palette returns n colours from the named scheme, cycling when n exceeds
// its size. An unknown scheme yields n evenly spaced hues.
func Palette(scheme string, n int) []color.Color {
	if n <= 0 {
		return nil
	}
	hexes, ok := lookupScheme(scheme)
	if !ok {
		return generateColors(n)
	}
	out := make([]color.Color, n)
	for i := range out {
		out[i] = mustParseHex(hexes[i%len(hexes)])
	}
	return out
}

func lookupScheme(name string) ([]string, bool) {
	for k, v := range palettes {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Hex formats c as #RRGGBB.
func Hex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8)
}

func mustParseHex(s string) color.RGBA {
	var c color.RGBA
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		panic(fmt.Sprintf("bad palette colour %q: %v", s, err))
	}
	c.A = 255
	return c
}

// generateColors creates n distinct colours spaced around the hue wheel.
func generateColors(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range n {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL in [0,1] to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
