package raster

import (
	"math"

	"golang.org/x/image/math/f64"

	"github.com/ivlev/scene2video/internal/effects"
)

// affine is a 2x3 matrix mapping (x, y) to (a*x + b*y + c, d*x + e*y + f).
type affine f64.Aff3

func identityAffine() affine { return affine{1, 0, 0, 0, 1, 0} }

func translate(x, y float64) affine { return affine{1, 0, x, 0, 1, y} }

func scale(sx, sy float64) affine { return affine{sx, 0, 0, 0, sy, 0} }

// rotate turns clockwise on screen, where y points down.
func rotate(deg float64) affine {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return affine{cos, -sin, 0, sin, cos, 0}
}

// mul returns m·n, which applies n first.
func (m affine) mul(n affine) affine {
	return affine{
		m[0]*n[0] + m[1]*n[3], m[0]*n[1] + m[1]*n[4], m[0]*n[2] + m[1]*n[5] + m[2],
		m[3]*n[0] + m[4]*n[3], m[3]*n[1] + m[4]*n[4], m[3]*n[2] + m[4]*n[5] + m[5],
	}
}

func (m affine) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

func (m affine) aff3() f64.Aff3 { return f64.Aff3(m) }

// elementMatrix places a w x h box whose top-left sits at (left, top) and
// applies the transforms about the box centre, in the order CSS does.
func elementMatrix(left, top, w, h float64, transforms []effects.Transform) affine {
	ox, oy := w/2, h/2
	m := translate(left+ox, top+oy)
	for _, t := range transforms {
		m = m.mul(transformMatrix(t, w, h))
	}
	return m.mul(translate(-ox, -oy))
}

func transformMatrix(t effects.Transform, w, h float64) affine {
	length := func(v, ref float64) float64 {
		if t.Unit == "%" {
			return v / 100 * ref
		}
		return v
	}

	switch t.Op {
	case effects.OpTranslate:
		return translate(length(t.Value, w), length(t.Y, h))
	case effects.OpTranslateX:
		return translate(length(t.Value, w), 0)
	case effects.OpTranslateY:
		return translate(0, length(t.Value, h))
	case effects.OpScale:
		return scale(t.Value, t.Value)
	case effects.OpRotate:
		return rotate(t.Value)
	}
	return identityAffine()
}
