package motion

// Interpolate maps x from [inStart, inEnd] onto [outStart, outEnd].
// x is clamped to the input range first, so there is no extrapolation.
func Interpolate(x, inStart, inEnd, outStart, outEnd float64) float64 {
	return InterpolateEased(x, inStart, inEnd, outStart, outEnd, nil)
}

// InterpolateEased is Interpolate with an easing curve applied to the
// normalised progress. The endpoints are exact regardless of the curve.
func InterpolateEased(x, inStart, inEnd, outStart, outEnd float64, easing EasingFunc) float64 {
	t := Progress(x, inStart, inEnd)
	switch {
	case t <= 0:
		return outStart
	case t >= 1:
		return outEnd
	}
	if easing != nil {
		t = easing(t)
	}
	return lerp(outStart, outEnd, t)
}

// Progress returns the clamped position of x inside [start, end] as 0..1.
// A degenerate window behaves like a step at start.
func Progress(x, start, end float64) float64 {
	if end <= start {
		if x < start {
			return 0
		}
		return 1
	}
	t := (x - start) / (end - start)
	return Clamp(t, 0, 1)
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
