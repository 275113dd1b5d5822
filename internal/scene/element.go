package scene

import (
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type ElementKind string

const (
	ElementText  ElementKind = "text"
	ElementShape ElementKind = "shape"
	ElementImage ElementKind = "image"
)

// Element is the closed set of drawable kinds: *TextElement, *ShapeElement,
// *ImageElement, plus *UnknownElement for anything else seen on the wire.
type Element interface {
	Kind() ElementKind
	Base() *Placement
	isElement()
}

// Placement holds the positioning fields shared by every element kind.
// X and Y are percentages of the canvas and mark the element centre.
type Placement struct {
	ID             string      `json:"id" yaml:"id"`
	Type           ElementKind `json:"type" yaml:"type"`
	X              float64     `json:"x" yaml:"x"`
	Y              float64     `json:"y" yaml:"y"`
	Width          *float64    `json:"width,omitempty" yaml:"width,omitempty"`
	Height         *float64    `json:"height,omitempty" yaml:"height,omitempty"`
	Rotation       float64     `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Opacity        *float64    `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	EnterAnimation *Animation  `json:"enterAnimation,omitempty" yaml:"enterAnimation,omitempty"`
	ExitAnimation  *Animation  `json:"exitAnimation,omitempty" yaml:"exitAnimation,omitempty"`
}

func (p *Placement) Base() *Placement { return p }

type TextElement struct {
	Placement       `yaml:",inline"`
	Text            string  `json:"text" yaml:"text"`
	FontSize        float64 `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	FontWeight      int     `json:"fontWeight,omitempty" yaml:"fontWeight,omitempty"`
	Color           string  `json:"color,omitempty" yaml:"color,omitempty"`
	FontFamily      string  `json:"fontFamily,omitempty" yaml:"fontFamily,omitempty"`
	TextAlign       string  `json:"textAlign,omitempty" yaml:"textAlign,omitempty"`
	LineHeight      float64 `json:"lineHeight,omitempty" yaml:"lineHeight,omitempty"`
	LetterSpacing   float64 `json:"letterSpacing,omitempty" yaml:"letterSpacing,omitempty"`
	BackgroundColor string  `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	Padding         float64 `json:"padding,omitempty" yaml:"padding,omitempty"`
	BorderRadius    float64 `json:"borderRadius,omitempty" yaml:"borderRadius,omitempty"`
	MaxWidth        float64 `json:"maxWidth,omitempty" yaml:"maxWidth,omitempty"`
}

type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeEllipse   ShapeKind = "ellipse"
	ShapeLine      ShapeKind = "line"
)

func (k ShapeKind) Valid() bool {
	switch k {
	case ShapeRectangle, ShapeCircle, ShapeEllipse, ShapeLine:
		return true
	}
	return false
}

type ShapeElement struct {
	Placement    `yaml:",inline"`
	Shape        ShapeKind `json:"shape" yaml:"shape"`
	Fill         string    `json:"fill,omitempty" yaml:"fill,omitempty"`
	Stroke       string    `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	StrokeWidth  float64   `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	BorderRadius float64   `json:"borderRadius,omitempty" yaml:"borderRadius,omitempty"`
	Shadow       string    `json:"shadow,omitempty" yaml:"shadow,omitempty"`
}

type ObjectFit string

const (
	FitCover   ObjectFit = "cover"
	FitContain ObjectFit = "contain"
	FitFill    ObjectFit = "fill"
)

func (f ObjectFit) Valid() bool {
	switch f {
	case FitCover, FitContain, FitFill:
		return true
	}
	return false
}

type ImageElement struct {
	Placement    `yaml:",inline"`
	Src          string    `json:"src" yaml:"src"`
	ObjectFit    ObjectFit `json:"objectFit,omitempty" yaml:"objectFit,omitempty"`
	BorderRadius float64   `json:"borderRadius,omitempty" yaml:"borderRadius,omitempty"`
}

// UnknownElement keeps an element whose type is not recognised. It renders as nothing.
type UnknownElement struct {
	Placement `yaml:",inline"`
}

func (*TextElement) Kind() ElementKind      { return ElementText }
func (*ShapeElement) Kind() ElementKind     { return ElementShape }
func (*ImageElement) Kind() ElementKind     { return ElementImage }
func (e *UnknownElement) Kind() ElementKind { return e.Type }

func (*TextElement) isElement()    {}
func (*ShapeElement) isElement()   {}
func (*ImageElement) isElement()   {}
func (*UnknownElement) isElement() {}

// The marshal methods stamp the discriminator so hand-built elements round-trip.

func (e *TextElement) MarshalJSON() ([]byte, error) {
	type plain TextElement
	c := plain(*e)
	c.Type = ElementText
	return json.Marshal(c)
}

func (e *ShapeElement) MarshalJSON() ([]byte, error) {
	type plain ShapeElement
	c := plain(*e)
	c.Type = ElementShape
	return json.Marshal(c)
}

func (e *ImageElement) MarshalJSON() ([]byte, error) {
	type plain ImageElement
	c := plain(*e)
	c.Type = ElementImage
	return json.Marshal(c)
}

func (e *TextElement) MarshalYAML() (interface{}, error) {
	type plain TextElement
	c := plain(*e)
	c.Type = ElementText
	return c, nil
}

func (e *ShapeElement) MarshalYAML() (interface{}, error) {
	type plain ShapeElement
	c := plain(*e)
	c.Type = ElementShape
	return c, nil
}

func (e *ImageElement) MarshalYAML() (interface{}, error) {
	type plain ImageElement
	c := plain(*e)
	c.Type = ElementImage
	return c, nil
}

// ElementList decodes the "type" discriminator into concrete element kinds.
type ElementList []Element

func newElement(kind ElementKind) Element {
	switch kind {
	case ElementText:
		return &TextElement{}
	case ElementShape:
		return &ShapeElement{}
	case ElementImage:
		return &ImageElement{}
	default:
		return &UnknownElement{Placement: Placement{Type: kind}}
	}
}

func (l *ElementList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(ElementList, 0, len(raws))
	for i, raw := range raws {
		el, err := decodeElementJSON(raw)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, el)
	}
	*l = out
	return nil
}

func (l *ElementList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: elements must be a sequence", value.Line)
	}

	out := make(ElementList, 0, len(value.Content))
	for _, node := range value.Content {
		el, err := decodeElementYAML(node)
		if err != nil {
			return err
		}
		out = append(out, el)
	}
	*l = out
	return nil
}

func decodeElementJSON(raw []byte) (Element, error) {
	var tagged struct {
		Type ElementKind `json:"type"`
	}
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return nil, err
	}
	el := newElement(tagged.Type)
	if err := json.Unmarshal(raw, el); err != nil {
		return nil, err
	}
	return el, nil
}

func decodeElementYAML(node *yaml.Node) (Element, error) {
	var tagged struct {
		Type ElementKind `yaml:"type"`
	}
	if err := node.Decode(&tagged); err != nil {
		return nil, err
	}
	el := newElement(tagged.Type)
	if err := node.Decode(el); err != nil {
		return nil, err
	}
	return el, nil
}

// Find returns the element with the given id and its index, or -1.
func (l ElementList) Find(id string) (Element, int) {
	for i, el := range l {
		if el.Base().ID == id {
			return el, i
		}
	}
	return nil, -1
}
