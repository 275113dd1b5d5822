package raster

import (
	"image"
	"math"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/scene2video/internal/renderer"
)

const (
	defaultFontSize = 16
	boldWeight      = 600
)

var (
	fontsOnce        sync.Once
	regular, bold    *opentype.Font
	errFontsUnusable error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regular, errFontsUnusable = opentype.Parse(goregular.TTF); errFontsUnusable != nil {
			return
		}
		bold, errFontsUnusable = opentype.Parse(gobold.TTF)
	})
	return errFontsUnusable
}

// newFace returns a fresh face; faces keep internal buffers and must not be
// shared between goroutines.
func newFace(size float64, weight int) (font.Face, error) {
	if err := loadFonts(); err != nil {
		return nil, err
	}
	f := regular
	if weight >= boldWeight {
		f = bold
	}
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
}

type textLayout struct {
	lines      []string
	widths     []float64
	lineHeight float64
	width      float64
	height     float64
}

func measure(face font.Face, s string, spacing float64) float64 {
	w := float64(font.MeasureString(face, s)) / 64
	return w + spacing*float64(utf8.RuneCountInString(s))
}

// layoutText keeps explicit line breaks and wraps at word boundaries when
// maxWidth > 0, breaking inside words that do not fit on their own.
func layoutText(face font.Face, text string, size, lineHeight, spacing, maxWidth float64) textLayout {
	l := textLayout{lineHeight: lineHeight * size}

	for _, para := range strings.Split(text, "\n") {
		if maxWidth <= 0 {
			l.lines = append(l.lines, para)
			continue
		}
		l.lines = append(l.lines, wrap(face, para, spacing, maxWidth)...)
	}

	l.widths = make([]float64, len(l.lines))
	for i, line := range l.lines {
		l.widths[i] = measure(face, line, spacing)
		l.width = math.Max(l.width, l.widths[i])
	}
	l.height = l.lineHeight * float64(len(l.lines))
	return l
}

func wrap(face font.Face, para string, spacing, maxWidth float64) []string {
	var lines []string
	var line string
	for _, word := range strings.FieldsFunc(para, unicode.IsSpace) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if measure(face, candidate, spacing) <= maxWidth {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
			line = ""
		}
		// Break an overlong word rune by rune.
		for measure(face, word, spacing) > maxWidth && utf8.RuneCountInString(word) > 1 {
			cut := 0
			for i := range word {
				if i > 0 && measure(face, word[:i], spacing) > maxWidth {
					break
				}
				cut = i
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(word)
			}
			lines = append(lines, word[:cut])
			word = word[cut:]
		}
		line = word
	}
	return append(lines, line)
}

// drawText renders the text state into dst, whose bounds are the content box.
func drawText(dst *image.RGBA, face font.Face, t *renderer.TextState, l textLayout) {
	c := MustColor(t.Color, Black)
	metrics := face.Metrics()
	ascent := float64(metrics.Ascent) / 64
	glyphHeight := float64(metrics.Ascent+metrics.Descent) / 64

	b := dst.Bounds()
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c.NRGBA()), Face: face}
	spacing := fixed.Int26_6(math.Round(t.LetterSpacing * 64))

	for i, line := range l.lines {
		x := float64(b.Min.X)
		switch t.TextAlign {
		case "center":
			x += (float64(b.Dx()) - l.widths[i]) / 2
		case "right", "end":
			x += float64(b.Dx()) - l.widths[i]
		}
		baseline := float64(b.Min.Y) + float64(i)*l.lineHeight + (l.lineHeight-glyphHeight)/2 + ascent

		d.Dot = fixed.Point26_6{X: fixed.Int26_6(math.Round(x * 64)), Y: fixed.Int26_6(math.Round(baseline * 64))}
		if spacing == 0 {
			d.DrawString(line)
			continue
		}
		for _, r := range line {
			d.DrawString(string(r))
			d.Dot.X += spacing
		}
	}
}
