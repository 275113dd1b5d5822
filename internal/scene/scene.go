package scene

// Composition is a complete declarative video: metadata plus ordered scenes.
type Composition struct {
	Meta   Meta    `json:"meta" yaml:"meta"`
	Scenes []Scene `json:"scenes" yaml:"scenes"`
}

// Meta holds canvas and timing settings of a composition
type Meta struct {
	Title  string `json:"title" yaml:"title"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	FPS    int    `json:"fps" yaml:"fps"`
}

// Scene is one shot of the composition. Transition describes the handoff
// to the next scene and is ignored on the last one.
type Scene struct {
	ID               string      `json:"id" yaml:"id"`
	DurationInFrames int         `json:"durationInFrames" yaml:"durationInFrames"`
	Background       Background  `json:"background" yaml:"background"`
	Elements         ElementList `json:"elements" yaml:"elements"`
	Transition       *Transition `json:"transition,omitempty" yaml:"transition,omitempty"`
}

type BackgroundKind string

const (
	BackgroundSolid    BackgroundKind = "solid"
	BackgroundGradient BackgroundKind = "gradient"
)

// Background is either a flat colour or a linear gradient.
// Direction is a CSS angle in degrees; 180, the default, runs top to bottom.
type Background struct {
	Type      BackgroundKind `json:"type" yaml:"type"`
	Color     string         `json:"color,omitempty" yaml:"color,omitempty"`
	Colors    []string       `json:"colors,omitempty" yaml:"colors,omitempty"`
	Direction *float64       `json:"direction,omitempty" yaml:"direction,omitempty"`
}

type AnimationKind string

const (
	AnimationFade       AnimationKind = "fade"
	AnimationSlide      AnimationKind = "slide"
	AnimationScale      AnimationKind = "scale"
	AnimationSpring     AnimationKind = "spring"
	AnimationBounce     AnimationKind = "bounce"
	AnimationRotate     AnimationKind = "rotate"
	AnimationBlur       AnimationKind = "blur"
	AnimationTypewriter AnimationKind = "typewriter"
)

func (k AnimationKind) Valid() bool {
	switch k {
	case AnimationFade, AnimationSlide, AnimationScale, AnimationSpring,
		AnimationBounce, AnimationRotate, AnimationBlur, AnimationTypewriter:
		return true
	}
	return false
}

type SlideDirection string

const (
	SlideLeft  SlideDirection = "left"
	SlideRight SlideDirection = "right"
	SlideUp    SlideDirection = "up"
	SlideDown  SlideDirection = "down"
)

func (d SlideDirection) Valid() bool {
	switch d {
	case SlideLeft, SlideRight, SlideUp, SlideDown:
		return true
	}
	return false
}

// DefaultAnimationDuration is used when an animation omits durationInFrames.
const DefaultAnimationDuration = 20

// Animation describes an enter or exit effect of an element.
type Animation struct {
	Type             AnimationKind  `json:"type" yaml:"type"`
	Delay            int            `json:"delay,omitempty" yaml:"delay,omitempty"`
	DurationInFrames int            `json:"durationInFrames,omitempty" yaml:"durationInFrames,omitempty"`
	Direction        SlideDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
	SpringConfig     *SpringConfig  `json:"springConfig,omitempty" yaml:"springConfig,omitempty"`
	Easing           string         `json:"easing,omitempty" yaml:"easing,omitempty"`
}

// Duration returns the animation length with the default applied.
func (a *Animation) Duration() int {
	if a.DurationInFrames > 0 {
		return a.DurationInFrames
	}
	return DefaultAnimationDuration
}

// Window returns the [start, end] frames of the animation inside a scene.
// Exit animations are anchored to the end of the scene.
func (a *Animation) Window(isExit bool, sceneDuration int) (start, end int) {
	duration := a.Duration()
	if isExit {
		start = sceneDuration - duration - a.Delay
	} else {
		start = a.Delay
	}
	return start, start + duration
}

// SpringConfig parameters of the damped oscillator. Nil fields fall back to
// the defaults of the animation kind.
type SpringConfig struct {
	Damping   *float64 `json:"damping,omitempty" yaml:"damping,omitempty"`
	Stiffness *float64 `json:"stiffness,omitempty" yaml:"stiffness,omitempty"`
	Mass      *float64 `json:"mass,omitempty" yaml:"mass,omitempty"`
}

type TransitionKind string

const (
	TransitionFade      TransitionKind = "fade"
	TransitionSlide     TransitionKind = "slide"
	TransitionWipe      TransitionKind = "wipe"
	TransitionFlip      TransitionKind = "flip"
	TransitionClockWipe TransitionKind = "clockWipe"
)

func (k TransitionKind) Valid() bool {
	switch k {
	case TransitionFade, TransitionSlide, TransitionWipe, TransitionFlip, TransitionClockWipe:
		return true
	}
	return false
}

type TransitionDirection string

const (
	FromLeft   TransitionDirection = "from-left"
	FromRight  TransitionDirection = "from-right"
	FromTop    TransitionDirection = "from-top"
	FromBottom TransitionDirection = "from-bottom"
)

func (d TransitionDirection) Valid() bool {
	switch d {
	case FromLeft, FromRight, FromTop, FromBottom:
		return true
	}
	return false
}

// Transition animates the boundary between a scene and the next one.
type Transition struct {
	Type             TransitionKind      `json:"type" yaml:"type"`
	DurationInFrames int                 `json:"durationInFrames" yaml:"durationInFrames"`
	Direction        TransitionDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
	Easing           string              `json:"easing,omitempty" yaml:"easing,omitempty"`
}
