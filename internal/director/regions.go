package director

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// RegionFinder locates blocks of content on a page by edge density:
// Sobel gradient, dilation to merge nearby edges, then connected components.
type RegionFinder struct {
	MinArea       int     // px², smaller components are noise
	EdgeThreshold float64 // gradient magnitude counted as an edge
	Radius        int     // dilation radius in px
	Passes        int
}

func NewRegionFinder() *RegionFinder {
	return &RegionFinder{
		MinArea:       500,
		EdgeThreshold: 30,
		Radius:        2,
		Passes:        2,
	}
}

// plane is a row-major single channel buffer.
type plane struct {
	w, h int
	v    []float64
}

func (p *plane) at(x, y int) float64 { return p.v[y*p.w+x] }

// Find returns the content blocks of img in image coordinates, unordered.
func (f *RegionFinder) Find(img image.Image) []image.Rectangle {
	b := img.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return nil
	}

	lum := luminance(img)
	mask := f.edges(lum)
	for i := 0; i < f.Passes; i++ {
		mask = dilate(mask, lum.w, lum.h, f.Radius)
	}

	var out []image.Rectangle
	for _, r := range components(mask, lum.w, lum.h) {
		if r.Dx()*r.Dy() >= f.MinArea {
			out = append(out, r.Add(b.Min))
		}
	}
	return out
}

func luminance(img image.Image) *plane {
	b := img.Bounds()
	p := &plane{w: b.Dx(), h: b.Dy(), v: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			p.v[y*p.w+x] = float64(g.Y)
		}
	}
	return p
}

// edges thresholds the Sobel gradient magnitude. The one pixel border is
// never an edge.
func (f *RegionFinder) edges(p *plane) []bool {
	mask := make([]bool, p.w*p.h)
	for y := 1; y < p.h-1; y++ {
		for x := 1; x < p.w-1; x++ {
			gx := (p.at(x+1, y-1) + 2*p.at(x+1, y) + p.at(x+1, y+1)) -
				(p.at(x-1, y-1) + 2*p.at(x-1, y) + p.at(x-1, y+1))
			gy := (p.at(x-1, y+1) + 2*p.at(x, y+1) + p.at(x+1, y+1)) -
				(p.at(x-1, y-1) + 2*p.at(x, y-1) + p.at(x+1, y-1))
			mask[y*p.w+x] = math.Hypot(gx, gy) > f.EdgeThreshold
		}
	}
	return mask
}

// dilate grows the mask by a square of the given radius, one axis at a time.
func dilate(mask []bool, w, h, radius int) []bool {
	if radius <= 0 {
		return mask
	}
	horiz := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		row := mask[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			for dx := max(x-radius, 0); dx <= min(x+radius, w-1); dx++ {
				if row[dx] {
					horiz[y*w+x] = true
					break
				}
			}
		}
	}
	out := make([]bool, len(mask))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			for dy := max(y-radius, 0); dy <= min(y+radius, h-1); dy++ {
				if horiz[dy*w+x] {
					out[y*w+x] = true
					break
				}
			}
		}
	}
	return out
}

// components returns the bounding box of every 4-connected set region.
func components(mask []bool, w, h int) []image.Rectangle {
	seen := make([]bool, len(mask))
	var rects []image.Rectangle
	var queue []int

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		seen[start] = true
		queue = append(queue[:0], start)
		r := image.Rect(start%w, start/w, start%w+1, start/w+1)

		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := i%w, i/w
			r = r.Union(image.Rect(x, y, x+1, y+1))

			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				switch {
				case n < 0 || n >= len(mask):
					continue
				case (n == i-1 && x == 0) || (n == i+1 && x == w-1):
					continue
				}
				if mask[n] && !seen[n] {
					seen[n] = true
					queue = append(queue, n)
				}
			}
		}
		rects = append(rects, r)
	}
	return rects
}

// ReadingOrder sorts regions top to bottom, then left to right within a row.
// Regions whose tops are within tolerance px share a row.
func ReadingOrder(regions []image.Rectangle, tolerance int) []image.Rectangle {
	sorted := append([]image.Rectangle(nil), regions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		dy := sorted[i].Min.Y - sorted[j].Min.Y
		if dy > tolerance || dy < -tolerance {
			return dy < 0
		}
		return sorted[i].Min.X < sorted[j].Min.X
	})
	return sorted
}
