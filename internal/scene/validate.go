package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ivlev/scene2video/internal/motion"
)

var (
	ErrNoScenes            = errors.New("composition has no scenes")
	ErrDuplicateSceneID    = errors.New("duplicate scene id")
	ErrDuplicateElementID  = errors.New("duplicate element id")
	ErrMissingField        = errors.New("missing required field")
	ErrInvalidDuration     = errors.New("duration must be a positive number of frames")
	ErrOutOfRange          = errors.New("value out of range")
	ErrTransitionTooLong   = errors.New("transition longer than an adjacent scene")
	ErrTypewriterOnNonText = errors.New("typewriter animation is only valid on text elements")
	ErrUnknownKind         = errors.New("unknown kind")
)

// MaxCanvasSide bounds meta.width and meta.height; a frame is allocated at
// full canvas size.
const MaxCanvasSide = 8192

// Issue is a single validation failure located by a JSON-style path.
type Issue struct {
	Path string
	Err  error
}

func (i Issue) Error() string { return i.Path + ": " + i.Err.Error() }

func (i Issue) Unwrap() error { return i.Err }

// ValidationError aggregates every issue found in a composition.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.Error()
	}
	return fmt.Sprintf("invalid composition (%d issues): %s", len(e.Issues), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Issues))
	for i, issue := range e.Issues {
		errs[i] = issue
	}
	return errs
}

type validator struct {
	issues []Issue
}

func (v *validator) add(path string, err error) {
	v.issues = append(v.issues, Issue{Path: path, Err: err})
}

func (v *validator) err() error {
	if len(v.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: v.issues}
}

// Validate runs the strict checks applied once a composition is final.
func Validate(comp *Composition) error {
	v := &validator{}
	if comp.Meta.Width <= 0 || comp.Meta.Width > MaxCanvasSide {
		v.add("meta.width", fmt.Errorf("%w: %d not in [1,%d]", ErrOutOfRange, comp.Meta.Width, MaxCanvasSide))
	}
	if comp.Meta.Height <= 0 || comp.Meta.Height > MaxCanvasSide {
		v.add("meta.height", fmt.Errorf("%w: %d not in [1,%d]", ErrOutOfRange, comp.Meta.Height, MaxCanvasSide))
	}
	if comp.Meta.FPS <= 0 {
		v.add("meta.fps", fmt.Errorf("%w: %d", ErrOutOfRange, comp.Meta.FPS))
	}
	v.scenes(comp.Scenes)
	return v.err()
}

// ValidateScenes applies the strict checks to a bare scene list.
func ValidateScenes(scenes []Scene) error {
	v := &validator{}
	v.scenes(scenes)
	return v.err()
}

func (v *validator) scenes(scenes []Scene) {
	if len(scenes) == 0 {
		v.add("scenes", ErrNoScenes)
		return
	}

	seen := make(map[string]int, len(scenes))
	for i := range scenes {
		s := &scenes[i]
		path := fmt.Sprintf("scenes[%d]", i)

		if s.ID == "" {
			v.add(path+".id", ErrMissingField)
		} else if prev, dup := seen[s.ID]; dup {
			v.add(path+".id", fmt.Errorf("%w: %q also used by scenes[%d]", ErrDuplicateSceneID, s.ID, prev))
		} else {
			seen[s.ID] = i
		}

		if s.DurationInFrames < 1 {
			v.add(path+".durationInFrames", fmt.Errorf("%w: %d", ErrInvalidDuration, s.DurationInFrames))
		}

		v.background(path+".background", s.Background)
		v.elements(path, s.Elements)

		// The transition on the last scene has nothing to hand off to.
		if s.Transition != nil && i < len(scenes)-1 {
			v.transition(path+".transition", s.Transition, s.DurationInFrames, scenes[i+1].DurationInFrames)
		}

		// A scene must finish handing in before it starts handing out.
		if in, out := handoffFrames(scenes, i-1), handoffFrames(scenes, i); in > 0 && out > 0 && in+out > s.DurationInFrames {
			v.add(path+".durationInFrames", fmt.Errorf("%w: incoming %d + outgoing %d > %d", ErrTransitionTooLong, in, out, s.DurationInFrames))
		}
	}
}

// handoffFrames is the length of the transition from scenes[i] to the next
// scene, or 0 when there is none.
func handoffFrames(scenes []Scene, i int) int {
	if i < 0 || i >= len(scenes)-1 || scenes[i].Transition == nil {
		return 0
	}
	return max(scenes[i].Transition.DurationInFrames, 0)
}

func (v *validator) background(path string, bg Background) {
	switch bg.Type {
	case BackgroundSolid:
	case BackgroundGradient:
		if len(bg.Colors) < 2 {
			v.add(path+".colors", fmt.Errorf("%w: gradient needs at least 2 colors, got %d", ErrOutOfRange, len(bg.Colors)))
		}
	case "":
		v.add(path+".type", ErrMissingField)
	default:
		v.add(path+".type", fmt.Errorf("%w: background %q", ErrUnknownKind, bg.Type))
	}
}

func (v *validator) elements(scenePath string, elements ElementList) {
	seen := make(map[string]bool, len(elements))
	for j, el := range elements {
		path := fmt.Sprintf("%s.elements[%d]", scenePath, j)
		if el == nil {
			v.add(path, ErrMissingField)
			continue
		}
		p := el.Base()

		if p.ID == "" {
			v.add(path+".id", ErrMissingField)
		} else if seen[p.ID] {
			v.add(path+".id", fmt.Errorf("%w: %q", ErrDuplicateElementID, p.ID))
		} else {
			seen[p.ID] = true
		}

		if p.X < 0 || p.X > 100 {
			v.add(path+".x", fmt.Errorf("%w: %g not in [0,100]", ErrOutOfRange, p.X))
		}
		if p.Y < 0 || p.Y > 100 {
			v.add(path+".y", fmt.Errorf("%w: %g not in [0,100]", ErrOutOfRange, p.Y))
		}
		if p.Opacity != nil && (*p.Opacity < 0 || *p.Opacity > 1) {
			v.add(path+".opacity", fmt.Errorf("%w: %g not in [0,1]", ErrOutOfRange, *p.Opacity))
		}
		if p.Width != nil && *p.Width < 0 {
			v.add(path+".width", fmt.Errorf("%w: %g", ErrOutOfRange, *p.Width))
		}
		if p.Height != nil && *p.Height < 0 {
			v.add(path+".height", fmt.Errorf("%w: %g", ErrOutOfRange, *p.Height))
		}

		switch e := el.(type) {
		case *TextElement:
		case *ShapeElement:
			if !e.Shape.Valid() {
				v.add(path+".shape", fmt.Errorf("%w: shape %q", ErrUnknownKind, e.Shape))
			}
		case *ImageElement:
			if e.Src == "" {
				v.add(path+".src", ErrMissingField)
			}
			if e.ObjectFit != "" && !e.ObjectFit.Valid() {
				v.add(path+".objectFit", fmt.Errorf("%w: objectFit %q", ErrUnknownKind, e.ObjectFit))
			}
		case *UnknownElement:
			v.add(path+".type", fmt.Errorf("%w: element %q", ErrUnknownKind, e.Type))
		}

		isText := el.Kind() == ElementText
		if p.EnterAnimation != nil {
			v.animation(path+".enterAnimation", p.EnterAnimation, isText)
		}
		if p.ExitAnimation != nil {
			v.animation(path+".exitAnimation", p.ExitAnimation, isText)
		}
	}
}

func (v *validator) animation(path string, a *Animation, isText bool) {
	if !a.Type.Valid() {
		v.add(path+".type", fmt.Errorf("%w: animation %q", ErrUnknownKind, a.Type))
	}
	if a.Type == AnimationTypewriter && !isText {
		v.add(path+".type", ErrTypewriterOnNonText)
	}
	if a.Delay < 0 {
		v.add(path+".delay", fmt.Errorf("%w: %d", ErrOutOfRange, a.Delay))
	}
	if a.DurationInFrames < 0 {
		v.add(path+".durationInFrames", fmt.Errorf("%w: %d", ErrInvalidDuration, a.DurationInFrames))
	}
	if a.Direction != "" && !a.Direction.Valid() {
		v.add(path+".direction", fmt.Errorf("%w: slide direction %q", ErrUnknownKind, a.Direction))
	}
	if a.Easing != "" && !motion.KnownEasing(a.Easing) {
		v.add(path+".easing", fmt.Errorf("%w: easing %q", ErrUnknownKind, a.Easing))
	}
	if sc := a.SpringConfig; sc != nil {
		if sc.Damping != nil && *sc.Damping <= 0 {
			v.add(path+".springConfig.damping", fmt.Errorf("%w: %g", ErrOutOfRange, *sc.Damping))
		}
		if sc.Stiffness != nil && *sc.Stiffness <= 0 {
			v.add(path+".springConfig.stiffness", fmt.Errorf("%w: %g", ErrOutOfRange, *sc.Stiffness))
		}
		if sc.Mass != nil && *sc.Mass <= 0 {
			v.add(path+".springConfig.mass", fmt.Errorf("%w: %g", ErrOutOfRange, *sc.Mass))
		}
	}
}

func (v *validator) transition(path string, tr *Transition, current, next int) {
	if !tr.Type.Valid() {
		v.add(path+".type", fmt.Errorf("%w: transition %q", ErrUnknownKind, tr.Type))
	}
	if tr.DurationInFrames < 1 {
		v.add(path+".durationInFrames", fmt.Errorf("%w: %d", ErrInvalidDuration, tr.DurationInFrames))
	}
	if tr.Direction != "" && !tr.Direction.Valid() {
		v.add(path+".direction", fmt.Errorf("%w: transition direction %q", ErrUnknownKind, tr.Direction))
	}
	if tr.Easing != "" && !motion.KnownEasing(tr.Easing) {
		v.add(path+".easing", fmt.Errorf("%w: easing %q", ErrUnknownKind, tr.Easing))
	}
	if limit := min(current, next); tr.DurationInFrames > limit {
		v.add(path+".durationInFrames", fmt.Errorf("%w: %d > %d", ErrTransitionTooLong, tr.DurationInFrames, limit))
	}
}
