package raster

import (
	"strconv"
	"strings"
)

type shadow struct {
	dx, dy, blur, spread float64
	color                Color
}

// parseShadow reads the first layer of a CSS box-shadow:
// "<dx> <dy> [blur] [spread] <color>". Inset shadows are ignored.
func parseShadow(s string) (shadow, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return shadow{}, false
	}
	// Only the first layer; commas inside rgba() are skipped.
	depth := 0
	for i, r := range s {
		if r == '(' {
			depth++
		} else if r == ')' {
			depth--
		} else if r == ',' && depth == 0 {
			s = s[:i]
			break
		}
	}

	var lengths []float64
	var colorText string
	for _, tok := range splitTokens(s) {
		if tok == "inset" {
			return shadow{}, false
		}
		if v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "px"), 64); err == nil {
			lengths = append(lengths, v)
			continue
		}
		colorText = tok
	}
	if len(lengths) < 2 {
		return shadow{}, false
	}

	sh := shadow{dx: lengths[0], dy: lengths[1], color: MustColor(colorText, Color{A: 1})}
	if len(lengths) > 2 {
		sh.blur = max(lengths[2], 0)
	}
	if len(lengths) > 3 {
		sh.spread = lengths[3]
	}
	return sh, true
}

// splitTokens splits on spaces outside parentheses.
func splitTokens(s string) []string {
	var out []string
	depth, start := 0, -1
	for i, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ' ' && depth == 0:
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// extent is how far the shadow reaches beyond the box.
func (sh shadow) extent() float64 {
	return max(abs(sh.dx), abs(sh.dy)) + sh.blur + max(sh.spread, 0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
