package timeline

import (
	"math"

	"github.com/ivlev/scene2video/internal/scene"
)

type ClipKind int

const (
	ClipNone ClipKind = iota
	// ClipRect keeps the rectangle [X0,X1]x[Y0,Y1], in canvas fractions.
	ClipRect
	// ClipSweep keeps the sector swept clockwise from 12 o'clock by Sweep degrees.
	ClipSweep
)

type Clip struct {
	Kind           ClipKind
	X0, Y0, X1, Y1 float64
	Sweep          float64
}

// Layer is how one of the two scenes of a handoff is composited.
// Translations are fractions of the canvas size.
type Layer struct {
	Visible    bool
	Opacity    float64
	TranslateX float64
	TranslateY float64
	// RotateY is the flip angle around the vertical axis in degrees.
	RotateY float64
	Clip    Clip
}

// ScaleX is the horizontal foreshortening of a flipped layer.
func (l Layer) ScaleX() float64 {
	return math.Abs(math.Cos(l.RotateY * math.Pi / 180))
}

func identity() Layer {
	return Layer{Visible: true, Opacity: 1}
}

// Presentation returns how the outgoing and incoming scenes are drawn at the
// given transition progress. The incoming scene is drawn on top.
func Presentation(tr scene.Transition, progress float64) (exiting, entering Layer) {
	p := math.Min(math.Max(progress, 0), 1)
	exiting, entering = identity(), identity()

	dir := tr.Direction
	if dir == "" {
		dir = scene.FromLeft
	}

	switch tr.Type {
	case scene.TransitionFade:
		entering.Opacity = p

	case scene.TransitionSlide:
		dx, dy := directionVector(dir)
		entering.TranslateX, entering.TranslateY = dx*(1-p), dy*(1-p)
		exiting.TranslateX, exiting.TranslateY = -dx*p, -dy*p

	case scene.TransitionWipe:
		entering.Clip = wipeClip(dir, p)

	case scene.TransitionFlip:
		exiting.RotateY = 180 * p
		entering.RotateY = -180 * (1 - p)
		exiting.Visible = p < 0.5
		entering.Visible = p >= 0.5

	case scene.TransitionClockWipe:
		entering.Clip = Clip{Kind: ClipSweep, Sweep: 360 * p}

	default:
		// Unknown transitions cut at the end of the overlap.
		entering.Visible = false
	}
	return exiting, entering
}

// directionVector points from where the incoming scene starts.
func directionVector(dir scene.TransitionDirection) (dx, dy float64) {
	switch dir {
	case scene.FromRight:
		return 1, 0
	case scene.FromTop:
		return 0, -1
	case scene.FromBottom:
		return 0, 1
	default:
		return -1, 0
	}
}

func wipeClip(dir scene.TransitionDirection, p float64) Clip {
	c := Clip{Kind: ClipRect, X0: 0, Y0: 0, X1: 1, Y1: 1}
	switch dir {
	case scene.FromRight:
		c.X0 = 1 - p
	case scene.FromTop:
		c.Y1 = p
	case scene.FromBottom:
		c.Y0 = 1 - p
	default:
		c.X1 = p
	}
	return c
}
