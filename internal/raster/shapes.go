package raster

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter ellipse.
const kappa = 0.5522847498

// roundedRect adds a rectangle with corner radius r to z.
func roundedRect(z *vector.Rasterizer, x0, y0, x1, y1, r float32) {
	r = min(r, (x1-x0)/2, (y1-y0)/2)
	if r <= 0 {
		z.MoveTo(x0, y0)
		z.LineTo(x1, y0)
		z.LineTo(x1, y1)
		z.LineTo(x0, y1)
		z.ClosePath()
		return
	}
	k := r * (1 - kappa)
	z.MoveTo(x0+r, y0)
	z.LineTo(x1-r, y0)
	z.CubeTo(x1-k, y0, x1, y0+k, x1, y0+r)
	z.LineTo(x1, y1-r)
	z.CubeTo(x1, y1-k, x1-k, y1, x1-r, y1)
	z.LineTo(x0+r, y1)
	z.CubeTo(x0+k, y1, x0, y1-k, x0, y1-r)
	z.LineTo(x0, y0+r)
	z.CubeTo(x0, y0+k, x0+k, y0, x0+r, y0)
	z.ClosePath()
}

// ellipse adds the ellipse inscribed in the box to z.
func ellipse(z *vector.Rasterizer, x0, y0, x1, y1 float32) {
	cx, cy := (x0+x1)/2, (y0+y1)/2
	rx, ry := (x1-x0)/2, (y1-y0)/2
	kx, ky := rx*kappa, ry*kappa
	z.MoveTo(cx+rx, cy)
	z.CubeTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	z.CubeTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	z.CubeTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	z.CubeTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	z.ClosePath()
}

// outline describes a closed shape inside a box so it can be filled at
// several insets (border, then fill).
type outline func(z *vector.Rasterizer, x0, y0, x1, y1 float32)

func rectOutline(radius float32) outline {
	return func(z *vector.Rasterizer, x0, y0, x1, y1 float32) {
		roundedRect(z, x0, y0, x1, y1, radius)
	}
}

func fillOutline(dst *image.RGBA, shape outline, inset float32, c Color) {
	if c.A <= 0 {
		return
	}
	b := dst.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	if w-2*inset <= 0 || h-2*inset <= 0 {
		return
	}
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	shape(z, inset, inset, w-inset, h-inset)
	z.Draw(dst, b, image.NewUniform(c.NRGBA()), image.Point{})
}

// roundedMask returns an alpha mask of a rounded rectangle covering size.
func roundedMask(size image.Point, radius float32) *image.Alpha {
	mask := image.NewAlpha(image.Rectangle{Max: size})
	z := vector.NewRasterizer(size.X, size.Y)
	roundedRect(z, 0, 0, float32(size.X), float32(size.Y), radius)
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// sweepMask keeps the sector swept clockwise from 12 o'clock.
func sweepMask(r image.Rectangle, degrees float64) *image.Alpha {
	mask := image.NewAlpha(r)
	if degrees <= 0 {
		return mask
	}
	if degrees >= 360 {
		draw.Draw(mask, r, image.Opaque, image.Point{}, draw.Src)
		return mask
	}
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	limit := degrees * math.Pi / 180
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			a := math.Atan2(float64(x)+0.5-cx, cy-float64(y)-0.5)
			if a < 0 {
				a += 2 * math.Pi
			}
			if a <= limit {
				mask.Pix[mask.PixOffset(x, y)] = 0xff
			}
		}
	}
	return mask
}
