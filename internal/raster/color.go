package raster

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrBadColor = errors.New("unsupported color")

// Color is an sRGB colour with straight alpha in [0,1].
type Color struct {
	colorful.Color
	A float64
}

var (
	Black       = Color{Color: colorful.Color{}, A: 1}
	Transparent = Color{}
)

var named = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"lime":    "#00ff00",
	"blue":    "#0000ff",
	"navy":    "#000080",
	"yellow":  "#ffff00",
	"gold":    "#ffd700",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"magenta": "#ff00ff",
	"fuchsia": "#ff00ff",
	"cyan":    "#00ffff",
	"aqua":    "#00ffff",
	"teal":    "#008080",
	"pink":    "#ffc0cb",
	"brown":   "#a52a2a",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"indigo":  "#4b0082",
	"violet":  "#ee82ee",
	"coral":   "#ff7f50",
	"crimson": "#dc143c",
}

// ParseColor understands hex (#rgb, #rgba, #rrggbb, #rrggbbaa), rgb()/rgba(),
// hsl()/hsla(), "transparent" and a set of common names.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "transparent" {
		return Transparent, nil
	}
	if hex, ok := named[s]; ok {
		s = hex
	}

	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	case strings.HasPrefix(s, "rgb"):
		return parseFunc(s, func(v []float64) colorful.Color {
			return colorful.Color{R: v[0] / 255, G: v[1] / 255, B: v[2] / 255}
		})
	case strings.HasPrefix(s, "hsl"):
		return parseFunc(s, func(v []float64) colorful.Color {
			return colorful.Hsl(v[0], v[1]/100, v[2]/100)
		})
	}
	return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
}

// MustColor parses s and falls back to def when s is empty or invalid.
func MustColor(s string, def Color) Color {
	if s == "" {
		return def
	}
	c, err := ParseColor(s)
	if err != nil {
		return def
	}
	return c
}

func parseHex(s string) (Color, error) {
	alpha := 1.0
	switch len(s) {
	case 5:
		a, err := strconv.ParseUint(s[4:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
		}
		alpha = float64(a) / 15
		s = s[:4]
	case 9:
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
		}
		alpha = float64(a) / 255
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return Color{Color: c, A: alpha}, nil
}

// parseFunc reads "name(a, b, c[, alpha])"; percentages are stripped and
// the alpha may be given as 0..1 or as a percentage.
func parseFunc(s string, build func([]float64) colorful.Color) (Color, error) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	fields := strings.FieldsFunc(s[open+1:end], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(fields) != 3 && len(fields) != 4 {
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}

	vals := make([]float64, len(fields))
	for i, f := range fields {
		pct := strings.HasSuffix(f, "%")
		f = strings.TrimSuffix(strings.TrimSuffix(f, "%"), "deg")
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
		}
		if i == 3 && pct {
			v /= 100
		}
		vals[i] = v
	}

	alpha := 1.0
	if len(vals) == 4 {
		alpha = clamp01(vals[3])
	}
	return Color{Color: build(vals).Clamped(), A: alpha}, nil
}

// NRGBA converts to a straight-alpha 8-bit colour.
func (c Color) NRGBA() color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp01(c.A) * 255))}
}

// Lerp blends towards o in sRGB, which is what browsers do for gradients.
func (c Color) Lerp(o Color, t float64) Color {
	return Color{Color: c.BlendRgb(o.Color, t), A: c.A + (o.A-c.A)*t}
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
