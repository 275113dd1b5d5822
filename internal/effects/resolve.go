package effects

import (
	"math"
	"unicode/utf8"

	"github.com/ivlev/scene2video/internal/motion"
	"github.com/ivlev/scene2video/internal/scene"
)

const (
	slideDistance     = 100
	slideFadeFrames   = 10
	springLiftPx      = 50
	maxBlurPx         = 20
	fullTurnDegrees   = 360
	typewriterPerRune = 2
)

// Per-kind spring defaults, used when the animation carries no springConfig.
var (
	scaleSpring  = motion.SpringConfig{Damping: 200, Stiffness: 100, Mass: 1}
	bouncySpring = motion.SpringConfig{Damping: 10, Stiffness: 100, Mass: 1}
	bounceSpring = motion.SpringConfig{Damping: 8, Stiffness: 200, Mass: 1}
)

// Resolve computes the partial style of one enter or exit animation at the
// given frame. A nil animation or an unknown type yields the identity style.
//
// Linear ramps are clamped to the animation window. Spring driven kinds play
// the spring over the window so they are settled exactly at its end.
func Resolve(anim *scene.Animation, frame, fps int, isExit bool, sceneDuration int) Style {
	if anim == nil {
		return Style{}
	}

	start, end := anim.Window(isExit, sceneDuration)
	f := float64(frame)
	s, e := float64(start), float64(end)
	curve := motion.Easing(anim.Easing)

	// ramp goes from "absent" to "present" for enter, and back for exit.
	ramp := func(absent, present float64) float64 {
		if isExit {
			return motion.InterpolateEased(f, s, e, present, absent, curve)
		}
		return motion.InterpolateEased(f, s, e, absent, present, curve)
	}
	fade := func(until float64) float64 {
		if isExit {
			return motion.Interpolate(f, s, until, 1, 0)
		}
		return motion.Interpolate(f, s, until, 0, 1)
	}

	switch anim.Type {
	case scene.AnimationFade:
		return Style{Opacity: opacity(ramp(0, 1))}

	case scene.AnimationSlide:
		dir := anim.Direction
		if dir == "" {
			dir = scene.SlideLeft
			if isExit {
				dir = scene.SlideRight
			}
		}
		sign := -1.0
		if dir == scene.SlideRight || dir == scene.SlideDown {
			sign = 1
		}
		op := OpTranslateY
		if dir == scene.SlideLeft || dir == scene.SlideRight {
			op = OpTranslateX
		}

		var offset float64
		if isExit {
			offset = motion.InterpolateEased(f, s, e, 0, sign*slideDistance, curve)
		} else {
			offset = motion.InterpolateEased(f, s, e, -sign*slideDistance, 0, curve)
		}
		return Style{
			Opacity:    opacity(fade(math.Min(s+slideFadeFrames, e))),
			Transforms: []Transform{{Op: op, Value: offset, Unit: "%"}},
		}

	case scene.AnimationScale, scene.AnimationBounce:
		presence := springPresence(anim, f-s, end-start, fps, isExit)
		return Style{Transforms: []Transform{{Op: OpScale, Value: math.Max(0, presence)}}}

	case scene.AnimationSpring:
		presence := springPresence(anim, f-s, end-start, fps, isExit)
		return Style{
			Opacity:    opacity(presence),
			Transforms: []Transform{{Op: OpTranslateY, Value: springLiftPx * (1 - presence), Unit: "px"}},
		}

	case scene.AnimationRotate:
		return Style{
			Opacity:    opacity(ramp(0, 1)),
			Transforms: []Transform{{Op: OpRotate, Value: rotation(ramp(0, 1), isExit), Unit: "deg"}},
		}

	case scene.AnimationBlur:
		return Style{
			Opacity: opacity(ramp(0, 1)),
			Blur:    ptr(math.Max(0, ramp(maxBlurPx, 0))),
		}
	}

	// typewriter is applied to the text content, other kinds are no-ops.
	return Style{}
}

// opacity clamps eased or sprung values that may overshoot.
func opacity(v float64) *float64 {
	return ptr(motion.Clamp(v, 0, 1))
}

// rotation maps presence onto -360..0 for enter and 0..360 for exit.
func rotation(presence float64, isExit bool) float64 {
	if isExit {
		return fullTurnDegrees * (1 - presence)
	}
	return -fullTurnDegrees * (1 - presence)
}

// springPresence returns how far the element is "in": the spring progress
// for enter and its complement for exit, so exit replays the enter motion
// backwards with the same physical spring.
func springPresence(anim *scene.Animation, since float64, duration, fps int, isExit bool) float64 {
	p := motion.SpringOver(since, duration, fps, SpringConfigFor(anim))
	if isExit {
		return 1 - p
	}
	return p
}

// SpringConfigFor resolves the spring of an animation. A configured spring is
// completed from the base defaults; without one the kind's default applies.
func SpringConfigFor(anim *scene.Animation) motion.SpringConfig {
	if sc := anim.SpringConfig; sc != nil {
		cfg := motion.DefaultSpring
		if sc.Damping != nil {
			cfg.Damping = *sc.Damping
		}
		if sc.Stiffness != nil {
			cfg.Stiffness = *sc.Stiffness
		}
		if sc.Mass != nil {
			cfg.Mass = *sc.Mass
		}
		return cfg
	}

	switch anim.Type {
	case scene.AnimationScale:
		return scaleSpring
	case scene.AnimationBounce:
		return bounceSpring
	default:
		return bouncySpring
	}
}

// TypewriterChars returns how many leading runes of text are visible at frame.
// Without a typewriter animation the whole text shows. When the animation
// omits its duration the text types at two frames per rune.
func TypewriterChars(anim *scene.Animation, text string, frame int) int {
	n := utf8.RuneCountInString(text)
	if anim == nil || anim.Type != scene.AnimationTypewriter {
		return n
	}

	duration := anim.DurationInFrames
	if duration <= 0 {
		duration = n * typewriterPerRune
	}
	start := float64(anim.Delay)
	progress := motion.Progress(float64(frame), start, start+float64(duration))
	return int(math.Floor(progress * float64(n)))
}

// TypewriterText returns the visible prefix of text at frame.
func TypewriterText(anim *scene.Animation, text string, frame int) string {
	chars := TypewriterChars(anim, text, frame)
	if chars >= utf8.RuneCountInString(text) {
		return text
	}
	i := 0
	for pos := range text {
		if i == chars {
			return text[:pos]
		}
		i++
	}
	return text
}
