package timeline

import (
	"github.com/ivlev/scene2video/internal/motion"
	"github.com/ivlev/scene2video/internal/scene"
)

// Overlap returns the number of frames scene i shares with scene i+1.
// The last scene never overlaps.
func Overlap(scenes []scene.Scene, i int) int {
	if i < 0 || i >= len(scenes)-1 || scenes[i].Transition == nil {
		return 0
	}
	return scenes[i].Transition.DurationInFrames
}

// TotalFrames is the sum of scene durations minus every transition overlap,
// clamped to at least one frame. It accepts partial scene lists.
//
// Formula: total = Σ D_i - Σ T_i, for i in [0, N-2]
func TotalFrames(scenes []scene.Scene) int {
	total := 0
	for i, s := range scenes {
		total += s.DurationInFrames - Overlap(scenes, i)
	}
	return max(total, 1)
}

// Seconds converts a frame count to wall-clock seconds.
func Seconds(totalFrames, fps int) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(totalFrames) / float64(fps)
}

// Starts returns the composition frame at which each scene begins. A scene
// starts where the previous one's transition begins.
func Starts(scenes []scene.Scene) []int {
	starts := make([]int, len(scenes))
	for i := 1; i < len(scenes); i++ {
		starts[i] = starts[i-1] + scenes[i-1].DurationInFrames - Overlap(scenes, i-1)
	}
	return starts
}

// Handoff describes a frame that falls inside a transition.
type Handoff struct {
	// From is the outgoing scene, To = From + 1 the incoming one.
	From, To   int
	FromFrame  int
	Transition scene.Transition
	// Progress runs from 0 at the first overlapped frame towards 1, eased.
	Progress float64
}

// Position locates a composition frame on the timeline.
type Position struct {
	Scene      int
	LocalFrame int
	Handoff    *Handoff
}

// Locate finds the scene showing at frame. The frame is clamped onto the
// timeline; ok is false only for an empty scene list.
func Locate(scenes []scene.Scene, frame int) (pos Position, ok bool) {
	if len(scenes) == 0 {
		return Position{}, false
	}
	frame = clampFrame(frame, 0, TotalFrames(scenes)-1)
	starts := Starts(scenes)

	idx := 0
	for i := range scenes {
		if starts[i] <= frame {
			idx = i
		}
	}
	pos = Position{Scene: idx, LocalFrame: frame - starts[idx]}

	if prev := idx - 1; prev >= 0 {
		overlap := Overlap(scenes, prev)
		if overlap > 0 && frame < starts[prev]+scenes[prev].DurationInFrames {
			tr := *scenes[prev].Transition
			raw := float64(frame-starts[idx]) / float64(overlap)
			pos.Handoff = &Handoff{
				From:       prev,
				To:         idx,
				FromFrame:  frame - starts[prev],
				Transition: tr,
				Progress:   motion.InterpolateEased(raw, 0, 1, 0, 1, motion.Easing(tr.Easing)),
			}
		}
	}
	return pos, true
}

func clampFrame(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
