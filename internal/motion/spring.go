package motion

import "math"

// SpringConfig parameters of a mass-spring-damper released at rest from 0
// towards 1.
type SpringConfig struct {
	Damping   float64
	Stiffness float64
	Mass      float64
}

// DefaultSpring is the base configuration missing fields are filled from.
var DefaultSpring = SpringConfig{Damping: 10, Stiffness: 100, Mass: 1}

const (
	// settleThreshold is the distance from the target under which a spring
	// counts as settled.
	settleThreshold = 0.005
	maxSettleFrames = 100000
	defaultFPS      = 30
)

func (c SpringConfig) normalized() SpringConfig {
	if c.Damping <= 0 {
		c.Damping = DefaultSpring.Damping
	}
	if c.Stiffness <= 0 {
		c.Stiffness = DefaultSpring.Stiffness
	}
	if c.Mass <= 0 {
		c.Mass = DefaultSpring.Mass
	}
	return c
}

// Spring returns the closed-form position of the spring frame frames after
// release. It is a pure function of its inputs: under-damped configurations
// overshoot and settle on 1, critically and over-damped ones rise
// monotonically to 1. Frames before release return 0.
func Spring(frame float64, fps int, cfg SpringConfig) float64 {
	if frame <= 0 {
		return 0
	}
	if fps <= 0 {
		fps = defaultFPS
	}
	return 1 + displacement(frame/float64(fps), cfg.normalized())
}

// displacement solves m*a = -k*y - c*v with y(0) = -1 and v(0) = 0.
func displacement(t float64, c SpringConfig) float64 {
	omega0 := math.Sqrt(c.Stiffness / c.Mass)
	zeta := c.Damping / (2 * math.Sqrt(c.Stiffness*c.Mass))

	switch {
	case math.Abs(zeta-1) < 1e-9:
		return -(1 + omega0*t) * math.Exp(-omega0*t)
	case zeta < 1:
		omegaD := omega0 * math.Sqrt(1-zeta*zeta)
		envelope := math.Exp(-zeta * omega0 * t)
		return -envelope * (math.Cos(omegaD*t) + zeta*omega0/omegaD*math.Sin(omegaD*t))
	default:
		// Both roots are negative, so the exponentials never overflow.
		root := omega0 * math.Sqrt(zeta*zeta-1)
		r1 := -zeta*omega0 + root
		r2 := -zeta*omega0 - root
		a := r2 / (r1 - r2)
		b := -r1 / (r1 - r2)
		return a*math.Exp(r1*t) + b*math.Exp(r2*t)
	}
}

// SettleFrames returns how many frames the spring needs until it stays
// within settleThreshold of its target.
func SettleFrames(fps int, cfg SpringConfig) int {
	if fps <= 0 {
		fps = defaultFPS
	}
	c := cfg.normalized()
	omega0 := math.Sqrt(c.Stiffness / c.Mass)
	zeta := c.Damping / (2 * math.Sqrt(c.Stiffness*c.Mass))

	// Upper bound of |displacement| for the oscillating case.
	amplitude := 1.0
	if zeta < 1 {
		omegaD := omega0 * math.Sqrt(1-zeta*zeta)
		amplitude = math.Hypot(1, zeta*omega0/omegaD)
	}

	last := 0
	for n := 1; n < maxSettleFrames; n++ {
		t := float64(n) / float64(fps)
		off := math.Abs(displacement(t, c))
		if off > settleThreshold {
			last = n
			continue
		}
		if zeta >= 1 {
			break
		}
		if amplitude*math.Exp(-zeta*omega0*t) < settleThreshold {
			break
		}
	}
	return last + 1
}

// SpringOver plays the spring stretched over duration frames: the natural
// settling time is mapped onto the window and the result is exactly 1 from
// frame duration on. duration <= 0 plays the spring at its natural speed.
func SpringOver(frame float64, duration int, fps int, cfg SpringConfig) float64 {
	if frame <= 0 {
		return 0
	}
	if duration <= 0 {
		return Spring(frame, fps, cfg)
	}
	if frame >= float64(duration) {
		return 1
	}
	natural := float64(SettleFrames(fps, cfg))
	return Spring(frame*natural/float64(duration), fps, cfg)
}
