package motion

import (
	"strings"

	"github.com/fogleman/ease"
)

// EasingFunc reshapes a normalised progress value.
type EasingFunc func(t float64) float64

var easings = map[string]EasingFunc{
	"linear":        nil,
	"in-quad":       ease.InQuad,
	"out-quad":      ease.OutQuad,
	"in-out-quad":   ease.InOutQuad,
	"in-cubic":      ease.InCubic,
	"out-cubic":     ease.OutCubic,
	"in-out-cubic":  ease.InOutCubic,
	"in-sine":       ease.InSine,
	"out-sine":      ease.OutSine,
	"in-out-sine":   ease.InOutSine,
	"in-back":       ease.InBack,
	"out-back":      ease.OutBack,
	"in-out-back":   ease.InOutBack,
	"in-bounce":     ease.InBounce,
	"out-bounce":    ease.OutBounce,
	"in-out-bounce": ease.InOutBounce,
}

// Easing looks up a named curve. Empty or unknown names mean linear (nil).
// Names are case-insensitive and accept camelCase ("easeOutCubic", "outCubic").
func Easing(name string) EasingFunc {
	return easings[normalizeEasing(name)]
}

// KnownEasing reports whether name resolves to a curve.
func KnownEasing(name string) bool {
	_, ok := easings[normalizeEasing(name)]
	return ok
}

func normalizeEasing(name string) string {
	name = strings.TrimPrefix(strings.TrimPrefix(name, "ease-"), "ease")
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return strings.Trim(strings.ReplaceAll(b.String(), "_", "-"), "-")
}
