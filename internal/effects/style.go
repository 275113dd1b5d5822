package effects

import (
	"strconv"
	"strings"
)

type TransformOp string

const (
	OpTranslate  TransformOp = "translate"
	OpTranslateX TransformOp = "translateX"
	OpTranslateY TransformOp = "translateY"
	OpScale      TransformOp = "scale"
	OpRotate     TransformOp = "rotate"
)

// Transform is one step of a composed transform. Unit is "%", "px", "deg"
// or empty for unitless scale. OpTranslate uses Value for X and Y.
type Transform struct {
	Op    TransformOp `json:"op"`
	Value float64     `json:"value"`
	Y     float64     `json:"y,omitempty"`
	Unit  string      `json:"unit,omitempty"`
}

func (t Transform) String() string {
	if t.Op == OpTranslate {
		return "translate(" + formatFloat(t.Value) + t.Unit + ", " + formatFloat(t.Y) + t.Unit + ")"
	}
	return string(t.Op) + "(" + formatFloat(t.Value) + t.Unit + ")"
}

// Style is the partial visual state produced by an animation. Nil pointers
// mean the axis is untouched.
type Style struct {
	Opacity    *float64    `json:"opacity,omitempty"`
	Transforms []Transform `json:"transforms,omitempty"`
	Blur       *float64    `json:"blur,omitempty"`
}

// OpacityOr returns the opacity or def when the style does not set one.
func (s Style) OpacityOr(def float64) float64 {
	if s.Opacity == nil {
		return def
	}
	return *s.Opacity
}

// TransformString renders the transforms in order, space separated.
func (s Style) TransformString() string {
	parts := make([]string, len(s.Transforms))
	for i, t := range s.Transforms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// Filter renders the blur as a CSS filter, or "" without blur.
func (s Style) Filter() string {
	if s.Blur == nil {
		return ""
	}
	return "blur(" + formatFloat(*s.Blur) + "px)"
}

// IsIdentity reports whether the style changes nothing.
func (s Style) IsIdentity() bool {
	return s.Opacity == nil && len(s.Transforms) == 0 && s.Blur == nil
}

// Merge combines the enter and exit styles of one element. Opacities
// multiply; transforms concatenate enter, then exit, then the element's own
// rotation, since transforms do not commute.
func Merge(enter, exit Style, rotation float64) Style {
	var merged Style
	if enter.Opacity != nil || exit.Opacity != nil {
		merged.Opacity = ptr(enter.OpacityOr(1) * exit.OpacityOr(1))
	}

	merged.Transforms = make([]Transform, 0, len(enter.Transforms)+len(exit.Transforms)+1)
	merged.Transforms = append(merged.Transforms, enter.Transforms...)
	merged.Transforms = append(merged.Transforms, exit.Transforms...)
	if rotation != 0 {
		merged.Transforms = append(merged.Transforms, Transform{Op: OpRotate, Value: rotation, Unit: "deg"})
	}

	if enter.Blur != nil {
		merged.Blur = enter.Blur
	} else {
		merged.Blur = exit.Blur
	}
	return merged
}

func ptr(v float64) *float64 { return &v }

func formatFloat(v float64) string {
	// Avoid "-0" in output strings.
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
