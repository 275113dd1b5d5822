package director

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"github.com/ivlev/scene2video/internal/scene"
)

// page draws white blocks on a black page.
func page(w, h int, blocks ...image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for _, b := range blocks {
		draw.Draw(img, b, image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	}
	return img
}

type fakeSource struct {
	pages []image.Image
}

func (f *fakeSource) PageCount() int { return len(f.pages) }

func (f *fakeSource) GetPageDimensions(i int) (float64, float64, error) {
	b := f.pages[i].Bounds()
	return float64(b.Dx()), float64(b.Dy()), nil
}

func (f *fakeSource) RenderPage(i int, _ int) (image.Image, error) { return f.pages[i], nil }

func (f *fakeSource) Close() error { return nil }

func TestRegionFinder(t *testing.T) {
	img := page(200, 200, image.Rect(50, 50, 150, 150))

	regions := NewRegionFinder().Find(img)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %v", regions)
	}
	r := regions[0]
	if r.Dx() < 100 || r.Dy() < 100 || r.Min.X > 50 || r.Min.Y > 50 {
		t.Errorf("region %v does not cover the block", r)
	}
}

func TestRegionFinderSkipsNoise(t *testing.T) {
	img := page(200, 200, image.Rect(10, 10, 12, 12), image.Rect(100, 100, 160, 140))
	regions := NewRegionFinder().Find(img)
	if len(regions) != 1 {
		t.Fatalf("expected the speck to be dropped, got %v", regions)
	}
}

func TestRegionFinderOffsetBounds(t *testing.T) {
	img := page(300, 300, image.Rect(150, 150, 250, 200))
	sub := img.SubImage(image.Rect(100, 100, 300, 300))
	regions := NewRegionFinder().Find(sub)
	if len(regions) != 1 || !regions[0].Overlaps(image.Rect(150, 150, 250, 200)) {
		t.Errorf("regions %v not in image coordinates", regions)
	}
}

func TestReadingOrder(t *testing.T) {
	in := []image.Rectangle{
		image.Rect(300, 102, 400, 150),
		image.Rect(10, 300, 100, 350),
		image.Rect(10, 100, 100, 150),
	}
	got := ReadingOrder(in, 4)
	want := []int{10, 300, 10}
	for i, r := range got {
		if r.Min.X != want[i] {
			t.Errorf("position %d: %v", i, r)
		}
	}
	if in[0].Min.X != 300 {
		t.Error("ReadingOrder must not reorder its input")
	}
}

func TestCalculateDwellTime(t *testing.T) {
	d := NewDirector(1280, 720, 30)
	tests := []struct {
		total  float64
		blocks int
		want   float64
	}{
		{10, 4, 2},
		{10, 20, 1},
		{60, 2, 3},
		{1, 1, 1},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := d.calculateDwellTime(tt.total, tt.blocks); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("calculateDwellTime(%v, %d) = %v, want %v", tt.total, tt.blocks, got, tt.want)
		}
	}
}

func TestCompose(t *testing.T) {
	src := &fakeSource{pages: []image.Image{
		page(160, 90, image.Rect(20, 20, 70, 40), image.Rect(20, 55, 140, 75)),
		page(160, 90),
	}}
	d := NewDirector(1280, 720, 30)
	d.Finder.MinArea = 100

	comp, err := d.Compose(src, "decks/talk.pdf")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if err := scene.Validate(comp); err != nil {
		t.Fatalf("draft composition is invalid: %v", err)
	}

	if comp.Meta.Title != "talk" || len(comp.Scenes) != 2 {
		t.Fatalf("meta = %+v, scenes = %d", comp.Meta, len(comp.Scenes))
	}

	first := comp.Scenes[0]
	img, ok := first.Elements[0].(*scene.ImageElement)
	if !ok || img.Src != "decks/talk.pdf#page=1" || img.ObjectFit != scene.FitContain {
		t.Fatalf("page element = %+v", first.Elements[0])
	}
	if len(first.Elements) != 3 {
		t.Fatalf("expected 2 highlights, got %d elements", len(first.Elements))
	}

	// The page fills the canvas exactly (same aspect), so block centres map
	// straight to percentages.
	hl := first.Elements[1].(*scene.ShapeElement)
	if hl.Shape != scene.ShapeRectangle || math.Abs(hl.Y-33.33) > 2 || hl.X > 40 {
		t.Errorf("first highlight at (%v,%v)", hl.X, hl.Y)
	}
	second := first.Elements[2].(*scene.ShapeElement)
	if second.EnterAnimation.Delay <= hl.EnterAnimation.Delay {
		t.Error("highlights should appear in reading order")
	}

	if first.Transition == nil || first.Transition.Type != scene.TransitionFade {
		t.Errorf("first scene transition = %+v", first.Transition)
	}
	if last := comp.Scenes[1]; last.Transition != nil || len(last.Elements) != 1 || last.DurationInFrames != 150 {
		t.Errorf("blank page scene = %+v", last)
	}
}

func TestComposeWithoutHighlights(t *testing.T) {
	d := NewDirector(640, 360, 25)
	d.MaxRegions = 0
	comp, err := d.Compose(&fakeSource{pages: []image.Image{page(10, 10, image.Rect(2, 2, 8, 8))}}, "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(comp.Scenes[0].Elements); n != 1 {
		t.Errorf("elements = %d, want only the page", n)
	}
}

func TestComposeEmpty(t *testing.T) {
	if _, err := NewDirector(640, 360, 30).Compose(&fakeSource{}, "empty.pdf"); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
}
