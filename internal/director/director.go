// Package director drafts a composition from a paged document: one scene per
// page, with the detected content blocks highlighted in reading order.
package director

import (
	"errors"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"

	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/source"
)

const (
	// AnalysisDPI is enough to find text blocks and cheap to rasterise.
	AnalysisDPI = 36

	highlightFade  = 8
	pageFade       = 15
	rowTolerance   = 4
	highlightColor = "#ffcc00"
)

var ErrEmptySource = errors.New("source has no pages")

// Director plans how long each page is shown and when its blocks light up.
type Director struct {
	Width, Height, FPS int
	PageSeconds        float64 // requested time per page
	MinDwell           float64 // seconds per highlighted block
	MaxDwell           float64
	MaxRegions         int // per page; 0 disables highlights
	Background         string
	Transition         *scene.Transition
	Finder             *RegionFinder
}

func NewDirector(width, height, fps int) *Director {
	return &Director{
		Width:       width,
		Height:      height,
		FPS:         fps,
		PageSeconds: 5,
		MinDwell:    1.0,
		MaxDwell:    3.0,
		MaxRegions:  6,
		Background:  "#111111",
		Transition:  &scene.Transition{Type: scene.TransitionFade, DurationInFrames: pageFade},
		Finder:      NewRegionFinder(),
	}
}

// Compose builds the draft composition for src. path is the document the
// image elements will reference.
func (d *Director) Compose(src source.Source, path string) (*scene.Composition, error) {
	pages := src.PageCount()
	if pages == 0 {
		return nil, ErrEmptySource
	}

	comp := &scene.Composition{
		Meta: scene.Meta{
			Title:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Width:  d.Width,
			Height: d.Height,
			FPS:    d.FPS,
		},
		Scenes: make([]scene.Scene, 0, pages),
	}

	for i := 0; i < pages; i++ {
		var regions []image.Rectangle
		var bounds image.Rectangle
		if d.MaxRegions > 0 {
			img, err := src.RenderPage(i, AnalysisDPI)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", i+1, err)
			}
			bounds = img.Bounds()
			regions = ReadingOrder(d.Finder.Find(img), rowTolerance)
			if len(regions) > d.MaxRegions {
				regions = regions[:d.MaxRegions]
			}
		}
		comp.Scenes = append(comp.Scenes, d.pageScene(i, PageRef(src, path, i), bounds, regions))
	}

	// The last scene has nothing to hand off to.
	if d.Transition != nil {
		for i := 0; i < len(comp.Scenes)-1; i++ {
			tr := *d.Transition
			tr.DurationInFrames = min(tr.DurationInFrames, comp.Scenes[i].DurationInFrames, comp.Scenes[i+1].DurationInFrames)
			comp.Scenes[i].Transition = &tr
		}
	}
	return comp, nil
}

// PageRef is the image src addressing page index of src.
func PageRef(src source.Source, path string, index int) string {
	if images, ok := src.(*source.ImageSource); ok {
		return images.PagePath(index)
	}
	return fmt.Sprintf("%s#page=%d", path, index+1)
}

func (d *Director) pageScene(index int, ref string, page image.Rectangle, regions []image.Rectangle) scene.Scene {
	dwell := d.calculateDwellTime(d.PageSeconds, len(regions))
	seconds := d.PageSeconds
	if len(regions) > 0 {
		// 1s intro + 1s outro around the highlights
		seconds = math.Max(seconds, 2+dwell*float64(len(regions)))
	}
	duration := max(d.frames(seconds), 1)

	pageW, pageH := 100.0, 100.0
	s := scene.Scene{
		ID:               fmt.Sprintf("page-%d", index+1),
		DurationInFrames: duration,
		Background:       scene.Background{Type: scene.BackgroundSolid, Color: d.Background},
		Elements: scene.ElementList{&scene.ImageElement{
			Placement: scene.Placement{
				ID: "page", Type: scene.ElementImage,
				X: 50, Y: 50, Width: &pageW, Height: &pageH,
				EnterAnimation: &scene.Animation{Type: scene.AnimationFade, DurationInFrames: pageFade},
			},
			Src:       ref,
			ObjectFit: scene.FitContain,
		}},
	}

	intro, step := d.FPS, d.frames(dwell)
	for j, r := range regions {
		start := intro + j*step
		end := min(start+step, duration)
		x, y, w, h := d.project(page, r)
		s.Elements = append(s.Elements, &scene.ShapeElement{
			Placement: scene.Placement{
				ID: fmt.Sprintf("highlight-%d", j+1), Type: scene.ElementShape,
				X: x, Y: y, Width: &w, Height: &h,
				EnterAnimation: &scene.Animation{Type: scene.AnimationFade, Delay: start, DurationInFrames: highlightFade},
				ExitAnimation:  &scene.Animation{Type: scene.AnimationFade, Delay: max(duration-end, 0), DurationInFrames: highlightFade},
			},
			Shape:        scene.ShapeRectangle,
			Stroke:       highlightColor,
			StrokeWidth:  4,
			BorderRadius: 8,
		})
	}
	return s
}

// calculateDwellTime spreads the page time, minus the intro and outro,
// over the highlighted blocks.
func (d *Director) calculateDwellTime(totalDuration float64, blockCount int) float64 {
	if blockCount == 0 {
		return 0
	}
	available := totalDuration - 2.0
	if available <= 0 {
		available = totalDuration
	}
	dwell := available / float64(blockCount)
	return math.Min(math.Max(dwell, d.MinDwell), d.MaxDwell)
}

func (d *Director) frames(seconds float64) int {
	return int(math.Round(seconds * float64(d.FPS)))
}

// project maps a block found on the page raster to canvas percentages,
// the page being fitted with object-fit: contain. A small margin keeps the
// outline off the content.
func (d *Director) project(page, r image.Rectangle) (x, y, w, h float64) {
	W, H := float64(d.Width), float64(d.Height)
	pw, ph := float64(page.Dx()), float64(page.Dy())
	scale := math.Min(W/pw, H/ph)
	offX, offY := (W-pw*scale)/2, (H-ph*scale)/2

	const margin = 6.0
	cx := offX + (float64(r.Min.X-page.Min.X)+float64(r.Dx())/2)*scale
	cy := offY + (float64(r.Min.Y-page.Min.Y)+float64(r.Dy())/2)*scale
	w = (float64(r.Dx())*scale + 2*margin) / W * 100
	h = (float64(r.Dy())*scale + 2*margin) / H * 100
	return round2(cx / W * 100), round2(cy / H * 100), round2(w), round2(h)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
