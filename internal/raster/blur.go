package raster

import (
	"image"
	"math"
)

// boxBlur approximates a gaussian blur of the given CSS radius with three
// box passes per axis. img is blurred in place.
func boxBlur(img *image.RGBA, radius float64) {
	if radius <= 0 {
		return
	}
	// CSS blur(r) uses r as the standard deviation.
	for _, box := range boxSizes(radius, 3) {
		r := (box - 1) / 2
		if r < 1 {
			continue
		}
		blurPass(img, r, true)
		blurPass(img, r, false)
	}
}

// boxSizes returns n box widths whose combination approximates sigma.
func boxSizes(sigma float64, n int) []int {
	ideal := math.Sqrt(12*sigma*sigma/float64(n) + 1)
	lower := int(math.Floor(ideal))
	if lower%2 == 0 {
		lower--
	}
	upper := lower + 2
	m := math.Round((12*sigma*sigma - float64(n*lower*lower) - float64(4*n*lower) - float64(3*n)) / float64(-4*lower-4))

	sizes := make([]int, n)
	for i := range sizes {
		if float64(i) < m {
			sizes[i] = lower
		} else {
			sizes[i] = upper
		}
	}
	return sizes
}

func blurPass(img *image.RGBA, r int, horizontal bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	lines, length := h, w
	if !horizontal {
		lines, length = w, h
	}

	src := make([]int, length*4)
	for line := 0; line < lines; line++ {
		offset := func(i int) int {
			if horizontal {
				return img.PixOffset(b.Min.X+i, b.Min.Y+line)
			}
			return img.PixOffset(b.Min.X+line, b.Min.Y+i)
		}
		for i := 0; i < length; i++ {
			o := offset(i)
			for c := 0; c < 4; c++ {
				src[i*4+c] = int(img.Pix[o+c])
			}
		}

		window := 2*r + 1
		var sum [4]int
		for i := -r; i <= r; i++ {
			if i >= 0 && i < length {
				for c := 0; c < 4; c++ {
					sum[c] += src[i*4+c]
				}
			}
		}
		for i := 0; i < length; i++ {
			o := offset(i)
			for c := 0; c < 4; c++ {
				img.Pix[o+c] = uint8(sum[c] / window)
			}
			if out := i - r; out >= 0 {
				for c := 0; c < 4; c++ {
					sum[c] -= src[out*4+c]
				}
			}
			if in := i + r + 1; in < length {
				for c := 0; c < 4; c++ {
					sum[c] += src[in*4+c]
				}
			}
		}
	}
}
