package renderer

import (
	"github.com/ivlev/scene2video/internal/scene"
)

const (
	DefaultBackground        = "#000000"
	DefaultGradientDirection = 180.0
)

// Paint is a resolved scene background.
type Paint struct {
	Kind      scene.BackgroundKind `json:"kind"`
	Color     string               `json:"color,omitempty"`
	Colors    []string             `json:"colors,omitempty"`
	Direction float64              `json:"direction,omitempty"`
}

// SceneState is everything drawn for one scene at one frame, in paint order.
type SceneState struct {
	ID         string         `json:"id"`
	Frame      int            `json:"frame"`
	Background Paint          `json:"background"`
	Elements   []ElementState `json:"elements"`
}

// ResolveBackground turns a background description into a concrete paint.
// A gradient needs two colours; with fewer it degrades to a flat fill.
func ResolveBackground(bg scene.Background) Paint {
	if bg.Type == scene.BackgroundGradient && len(bg.Colors) >= 2 {
		dir := DefaultGradientDirection
		if bg.Direction != nil {
			dir = *bg.Direction
		}
		return Paint{Kind: scene.BackgroundGradient, Colors: bg.Colors, Direction: dir}
	}

	color := bg.Color
	if color == "" && len(bg.Colors) == 1 {
		color = bg.Colors[0]
	}
	if color == "" {
		color = DefaultBackground
	}
	return Paint{Kind: scene.BackgroundSolid, Color: color}
}

// RenderScene resolves the background and every element of s at the
// scene-local frame.
func RenderScene(s scene.Scene, frame, fps int) SceneState {
	state := SceneState{
		ID:         s.ID,
		Frame:      frame,
		Background: ResolveBackground(s.Background),
		Elements:   make([]ElementState, 0, len(s.Elements)),
	}
	for _, el := range s.Elements {
		if es, ok := RenderElement(el, frame, fps, s.DurationInFrames); ok {
			state.Elements = append(state.Elements, es)
		}
	}
	return state
}
