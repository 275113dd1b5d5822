package renderer

import (
	"strconv"
	"strings"

	"github.com/ivlev/scene2video/internal/scene"
)

// Declaration is a single CSS property.
type Declaration struct {
	Property string
	Value    string
}

func joinCSS(decls []Declaration) string {
	var b strings.Builder
	for i, d := range decls {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d.Property)
		b.WriteString(": ")
		b.WriteString(d.Value)
		b.WriteByte(';')
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func pct(v float64) string { return num(v) + "%" }

func px(v float64) string { return num(v) + "px" }

// TransformString joins every transform in application order.
func (s ElementState) TransformString() string {
	parts := make([]string, len(s.Transforms))
	for i, t := range s.Transforms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// Declarations returns the element style in a stable order.
func (s ElementState) Declarations() []Declaration {
	decls := []Declaration{
		{"position", "absolute"},
		{"left", pct(s.X)},
		{"top", pct(s.Y)},
	}
	if s.Width != nil {
		decls = append(decls, Declaration{"width", pct(*s.Width)})
	}
	if s.Height != nil && (s.Shape == nil || s.Shape.Thickness == nil) {
		decls = append(decls, Declaration{"height", pct(*s.Height)})
	}
	decls = append(decls,
		Declaration{"transform", s.TransformString()},
		Declaration{"opacity", num(s.Opacity)},
	)
	if s.Blur != nil {
		decls = append(decls, Declaration{"filter", "blur(" + px(*s.Blur) + ")"})
	}

	switch {
	case s.Text != nil:
		t := s.Text
		if t.FontSize > 0 {
			decls = append(decls, Declaration{"font-size", px(t.FontSize)})
		}
		decls = append(decls,
			Declaration{"font-family", t.FontFamily},
			Declaration{"font-weight", strconv.Itoa(t.FontWeight)},
		)
		if t.Color != "" {
			decls = append(decls, Declaration{"color", t.Color})
		}
		decls = append(decls,
			Declaration{"text-align", t.TextAlign},
			Declaration{"line-height", num(t.LineHeight)},
		)
		if t.LetterSpacing != 0 {
			decls = append(decls, Declaration{"letter-spacing", px(t.LetterSpacing)})
		}
		if b := t.Badge; b != nil {
			decls = append(decls, Declaration{"background-color", b.Color})
			if b.Padding != 0 {
				decls = append(decls, Declaration{"padding", px(b.Padding)})
			}
			if b.BorderRadius != 0 {
				decls = append(decls, Declaration{"border-radius", px(b.BorderRadius)})
			}
		}
		if t.MaxWidth != nil {
			decls = append(decls, Declaration{"max-width", pct(*t.MaxWidth)})
		}
		decls = append(decls,
			Declaration{"white-space", "pre-wrap"},
			Declaration{"word-break", "break-word"},
		)

	case s.Shape != nil:
		sh := s.Shape
		if sh.Fill != "" {
			decls = append(decls, Declaration{"background-color", sh.Fill})
		}
		if sh.Border != nil {
			decls = append(decls, Declaration{"border", px(sh.Border.Width) + " solid " + sh.Border.Color})
		}
		if sh.Round {
			decls = append(decls, Declaration{"border-radius", "50%"})
		} else if sh.BorderRadius != 0 {
			decls = append(decls, Declaration{"border-radius", px(sh.BorderRadius)})
		}
		if sh.Shadow != "" {
			decls = append(decls, Declaration{"box-shadow", sh.Shadow})
		}
		if sh.Thickness != nil {
			decls = append(decls, Declaration{"height", px(*sh.Thickness)})
		}

	case s.Image != nil:
		decls = append(decls, Declaration{"object-fit", string(s.Image.ObjectFit)})
		if s.Image.BorderRadius != 0 {
			decls = append(decls, Declaration{"border-radius", px(s.Image.BorderRadius)})
		}
	}
	return decls
}

// CSS renders the element style as an inline style attribute.
func (s ElementState) CSS() string {
	return joinCSS(s.Declarations())
}

// CSS renders the background paint.
func (p Paint) CSS() string {
	if p.Kind == scene.BackgroundGradient {
		return "background: linear-gradient(" + num(p.Direction) + "deg, " + strings.Join(p.Colors, ", ") + ");"
	}
	return "background-color: " + p.Color + ";"
}

// InsetCSS is the clip-path keeping the rectangle [x0,x1]x[y0,y1], given in
// canvas fractions.
func InsetCSS(x0, y0, x1, y1 float64) string {
	return "inset(" + pct(y0*100) + " " + pct((1-x1)*100) + " " + pct((1-y1)*100) + " " + pct(x0*100) + ")"
}

// SweepMaskCSS is the mask-image revealing a clockwise sector from 12 o'clock.
func SweepMaskCSS(sweep float64) string {
	return "conic-gradient(#000 0deg " + num(sweep) + "deg, transparent " + num(sweep) + "deg)"
}
