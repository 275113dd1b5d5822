package renderer

import (
	"github.com/ivlev/scene2video/internal/effects"
	"github.com/ivlev/scene2video/internal/scene"
)

// Typography and shape defaults applied when an element leaves them unset.
const (
	DefaultFontFamily  = "sans-serif"
	DefaultFontWeight  = 400
	DefaultTextAlign   = "center"
	DefaultLineHeight  = 1.2
	DefaultStrokeWidth = 2.0
	DefaultObjectFit   = scene.FitCover
)

// ElementState is the visual description of one element at one frame.
// Positions and sizes are percentages of the canvas; the element is
// centred on (X, Y).
type ElementState struct {
	ID         string              `json:"id"`
	Kind       scene.ElementKind   `json:"kind"`
	X          float64             `json:"x"`
	Y          float64             `json:"y"`
	Width      *float64            `json:"width,omitempty"`
	Height     *float64            `json:"height,omitempty"`
	Opacity    float64             `json:"opacity"`
	Transforms []effects.Transform `json:"transforms"`
	Blur       *float64            `json:"blur,omitempty"`

	Text  *TextState  `json:"text,omitempty"`
	Shape *ShapeState `json:"shape,omitempty"`
	Image *ImageState `json:"image,omitempty"`
}

type TextState struct {
	Content       string   `json:"content"`
	FontSize      float64  `json:"fontSize,omitempty"`
	FontFamily    string   `json:"fontFamily"`
	FontWeight    int      `json:"fontWeight"`
	Color         string   `json:"color,omitempty"`
	TextAlign     string   `json:"textAlign"`
	LineHeight    float64  `json:"lineHeight"`
	LetterSpacing float64  `json:"letterSpacing,omitempty"`
	MaxWidth      *float64 `json:"maxWidth,omitempty"`
	Badge         *Badge   `json:"badge,omitempty"`
}

// Badge is the optional background box drawn behind text.
type Badge struct {
	Color        string  `json:"color"`
	Padding      float64 `json:"padding,omitempty"`
	BorderRadius float64 `json:"borderRadius,omitempty"`
}

type ShapeState struct {
	Shape scene.ShapeKind `json:"shape"`
	Fill  string          `json:"fill,omitempty"`
	// Border is the outline; lines never have one.
	Border *Border `json:"border,omitempty"`
	// Round forces fully rounded corners (circle, ellipse).
	Round        bool    `json:"round,omitempty"`
	BorderRadius float64 `json:"borderRadius,omitempty"`
	Shadow       string  `json:"shadow,omitempty"`
	// Thickness replaces the height of a line, in pixels.
	Thickness *float64 `json:"thickness,omitempty"`
}

type Border struct {
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

type ImageState struct {
	Src          string          `json:"src"`
	ObjectFit    scene.ObjectFit `json:"objectFit"`
	BorderRadius float64         `json:"borderRadius,omitempty"`
}

// RenderElement resolves the element at frame. The second result is false
// for element kinds that render nothing.
func RenderElement(el scene.Element, frame, fps, sceneDuration int) (ElementState, bool) {
	if el == nil {
		return ElementState{}, false
	}
	p := el.Base()

	enter := effects.Resolve(p.EnterAnimation, frame, fps, false, sceneDuration)
	exit := effects.Resolve(p.ExitAnimation, frame, fps, true, sceneDuration)
	merged := effects.Merge(enter, exit, p.Rotation)

	opacity := merged.OpacityOr(1)
	if p.Opacity != nil {
		opacity *= *p.Opacity
	}

	state := ElementState{
		ID:         p.ID,
		Kind:       el.Kind(),
		X:          p.X,
		Y:          p.Y,
		Width:      p.Width,
		Height:     p.Height,
		Opacity:    opacity,
		Transforms: append([]effects.Transform{centerAnchor}, merged.Transforms...),
		Blur:       merged.Blur,
	}

	switch e := el.(type) {
	case *scene.TextElement:
		state.Text = renderText(e, frame)
	case *scene.ShapeElement:
		state.Shape = renderShape(e)
	case *scene.ImageElement:
		state.Image = renderImage(e)
	default:
		return ElementState{}, false
	}
	return state, true
}

var centerAnchor = effects.Transform{Op: effects.OpTranslate, Value: -50, Y: -50, Unit: "%"}

func renderText(e *scene.TextElement, frame int) *TextState {
	t := &TextState{
		Content:       effects.TypewriterText(e.EnterAnimation, e.Text, frame),
		FontSize:      e.FontSize,
		FontFamily:    e.FontFamily,
		FontWeight:    e.FontWeight,
		Color:         e.Color,
		TextAlign:     e.TextAlign,
		LineHeight:    e.LineHeight,
		LetterSpacing: e.LetterSpacing,
	}
	if t.FontFamily == "" {
		t.FontFamily = DefaultFontFamily
	}
	if t.FontWeight == 0 {
		t.FontWeight = DefaultFontWeight
	}
	if t.TextAlign == "" {
		t.TextAlign = DefaultTextAlign
	}
	if t.LineHeight == 0 {
		t.LineHeight = DefaultLineHeight
	}
	if e.MaxWidth > 0 {
		w := e.MaxWidth
		t.MaxWidth = &w
	}
	if e.BackgroundColor != "" {
		t.Badge = &Badge{Color: e.BackgroundColor, Padding: e.Padding, BorderRadius: e.BorderRadius}
	}
	return t
}

func renderShape(e *scene.ShapeElement) *ShapeState {
	s := &ShapeState{
		Shape:        e.Shape,
		Fill:         e.Fill,
		BorderRadius: e.BorderRadius,
		Shadow:       e.Shadow,
	}

	width := e.StrokeWidth
	if width == 0 {
		width = DefaultStrokeWidth
	}

	switch e.Shape {
	case scene.ShapeLine:
		// A line is a filled bar as thick as the stroke.
		if e.Stroke != "" {
			s.Fill = e.Stroke
		}
		s.Thickness = &width
	case scene.ShapeCircle, scene.ShapeEllipse:
		s.Round = true
		s.BorderRadius = 0
		fallthrough
	default:
		if e.Stroke != "" {
			s.Border = &Border{Width: width, Color: e.Stroke}
		}
	}
	return s
}

func renderImage(e *scene.ImageElement) *ImageState {
	fit := e.ObjectFit
	if fit == "" {
		fit = DefaultObjectFit
	}
	return &ImageState{Src: e.Src, ObjectFit: fit, BorderRadius: e.BorderRadius}
}
