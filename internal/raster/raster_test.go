package raster

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ivlev/scene2video/internal/effects"
	"github.com/ivlev/scene2video/internal/renderer"
	"github.com/ivlev/scene2video/internal/scene"
)

func f64(v float64) *float64 { return &v }

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ff0000", color.NRGBA{255, 0, 0, 255}},
		{"#0f0", color.NRGBA{0, 255, 0, 255}},
		{"#0000ff80", color.NRGBA{0, 0, 255, 128}},
		{"rgb(10, 20, 30)", color.NRGBA{10, 20, 30, 255}},
		{"rgba(0,0,0,0.5)", color.NRGBA{0, 0, 0, 128}},
		{"hsl(0, 100%, 50%)", color.NRGBA{255, 0, 0, 255}},
		{"White", color.NRGBA{255, 255, 255, 255}},
		{"transparent", color.NRGBA{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseColor(tt.in)
			if err != nil {
				t.Fatalf("ParseColor: %v", err)
			}
			if got := c.NRGBA(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "#12", "rgb(1,2)", "blurple", "#gggggg"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) should fail", bad)
		}
	}
}

func TestGradientAt(t *testing.T) {
	stops := []Color{MustColor("#000000", Black), MustColor("#ffffff", Black), MustColor("#000000", Black)}
	if got := gradientAt(stops, 0).NRGBA(); got.R != 0 {
		t.Errorf("t=0: %v", got)
	}
	if got := gradientAt(stops, 0.5).NRGBA(); got.R != 255 {
		t.Errorf("t=0.5: %v", got)
	}
	if got := gradientAt(stops, 1).NRGBA(); got.R != 0 {
		t.Errorf("t=1: %v", got)
	}
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestDrawSceneSolidAndShape(t *testing.T) {
	r := New(100, 100, nil)
	dst := image.NewRGBA(r.Bounds())

	s := scene.Scene{
		ID:               "s",
		DurationInFrames: 30,
		Background:       scene.Background{Type: scene.BackgroundSolid, Color: "#0000ff"},
		Elements: scene.ElementList{
			&scene.ShapeElement{
				Placement: scene.Placement{ID: "box", X: 50, Y: 50, Width: f64(20), Height: f64(20)},
				Shape:     scene.ShapeRectangle,
				Fill:      "#ff0000",
			},
		},
	}
	if err := r.DrawScene(dst, renderer.RenderScene(s, 0, 30)); err != nil {
		t.Fatal(err)
	}

	if c := rgbaAt(dst, 50, 50); c.R < 250 || c.B > 5 {
		t.Errorf("centre should be red, got %v", c)
	}
	if c := rgbaAt(dst, 5, 5); c.B != 255 || c.R != 0 {
		t.Errorf("corner should be blue, got %v", c)
	}
	if c := rgbaAt(dst, 35, 50); c.B != 255 {
		t.Errorf("outside the box should be blue, got %v", c)
	}
}

func TestDrawSceneOpacity(t *testing.T) {
	r := New(40, 40, nil)
	dst := image.NewRGBA(r.Bounds())
	s := scene.Scene{
		DurationInFrames: 40,
		Background:       scene.Background{Type: scene.BackgroundSolid},
		Elements: scene.ElementList{
			&scene.ShapeElement{
				Placement: scene.Placement{
					ID: "fade", X: 50, Y: 50, Width: f64(100), Height: f64(100),
					EnterAnimation: &scene.Animation{Type: scene.AnimationFade},
				},
				Shape: scene.ShapeRectangle,
				Fill:  "#ffffff",
			},
		},
	}
	r.DrawScene(dst, renderer.RenderScene(s, 10, 30))
	if c := rgbaAt(dst, 20, 20); math.Abs(float64(c.R)-128) > 3 {
		t.Errorf("half faded white over black should be mid grey, got %v", c)
	}
}

func TestDrawSceneText(t *testing.T) {
	r := New(200, 100, nil)
	dst := image.NewRGBA(r.Bounds())
	s := scene.Scene{
		DurationInFrames: 30,
		Background:       scene.Background{Type: scene.BackgroundSolid, Color: "#000"},
		Elements: scene.ElementList{
			&scene.TextElement{
				Placement: scene.Placement{ID: "t", X: 50, Y: 50},
				Text:      "Hello\nWorld",
				FontSize:  24,
				Color:     "#ffffff",
			},
		},
	}
	if err := r.DrawScene(dst, renderer.RenderScene(s, 0, 30)); err != nil {
		t.Fatal(err)
	}

	lit := 0
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] > 128 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("expected text pixels")
	}
}

func TestDrawSceneGradient(t *testing.T) {
	deg := func(v float64) *float64 { return &v }
	tests := []struct {
		name       string
		direction  *float64
		dark, lite image.Point
	}{
		{"default runs top to bottom", nil, image.Pt(50, 0), image.Pt(50, 99)},
		{"180 runs top to bottom", deg(180), image.Pt(50, 0), image.Pt(50, 99)},
		{"0 runs bottom to top", deg(0), image.Pt(50, 99), image.Pt(50, 0)},
		{"90 runs left to right", deg(90), image.Pt(0, 50), image.Pt(99, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(100, 100, nil)
			dst := image.NewRGBA(r.Bounds())
			bg := scene.Background{Type: scene.BackgroundGradient, Colors: []string{"#000000", "#ffffff"}, Direction: tt.direction}
			r.DrawScene(dst, renderer.RenderScene(scene.Scene{Background: bg}, 0, 30))

			dark, lite := rgbaAt(dst, tt.dark.X, tt.dark.Y), rgbaAt(dst, tt.lite.X, tt.lite.Y)
			if dark.R > 10 || lite.R < 245 {
				t.Errorf("first stop at %v = %v, last stop at %v = %v", tt.dark, dark, tt.lite, lite)
			}
		})
	}
}

func TestMissingImageIsReported(t *testing.T) {
	r := New(20, 20, nil)
	dst := image.NewRGBA(r.Bounds())
	s := scene.Scene{
		Elements: scene.ElementList{
			&scene.ImageElement{Placement: scene.Placement{ID: "img", X: 50, Y: 50}, Src: "https://example.com/a.png"},
		},
	}
	if err := r.DrawScene(dst, renderer.RenderScene(s, 0, 30)); err == nil {
		t.Error("expected error for an image without a loader")
	}
	if c := rgbaAt(dst, 10, 10); c.A != 255 {
		t.Errorf("background should still be painted, got %v", c)
	}
}

func TestFrameFadeTransition(t *testing.T) {
	comp := &scene.Composition{
		Meta: scene.Meta{Width: 8, Height: 8, FPS: 30},
		Scenes: []scene.Scene{
			{ID: "a", DurationInFrames: 20, Background: scene.Background{Type: scene.BackgroundSolid, Color: "#000000"},
				Transition: &scene.Transition{Type: scene.TransitionFade, DurationInFrames: 10}},
			{ID: "b", DurationInFrames: 20, Background: scene.Background{Type: scene.BackgroundSolid, Color: "#ffffff"}},
		},
	}
	r := New(8, 8, nil)

	frame, err := r.Frame(comp, 15)
	if err != nil {
		t.Fatal(err)
	}
	if c := rgbaAt(frame, 4, 4); math.Abs(float64(c.R)-128) > 3 {
		t.Errorf("half way through the fade should be grey, got %v", c)
	}

	last, _ := r.Frame(comp, 29)
	if c := rgbaAt(last, 4, 4); c.R != 255 {
		t.Errorf("last frame should be the second scene, got %v", c)
	}
}

func TestFrameWipeTransition(t *testing.T) {
	comp := &scene.Composition{
		Meta: scene.Meta{Width: 10, Height: 4, FPS: 30},
		Scenes: []scene.Scene{
			{ID: "a", DurationInFrames: 20, Background: scene.Background{Type: scene.BackgroundSolid, Color: "#000000"},
				Transition: &scene.Transition{Type: scene.TransitionWipe, DurationInFrames: 10, Direction: scene.FromLeft}},
			{ID: "b", DurationInFrames: 20, Background: scene.Background{Type: scene.BackgroundSolid, Color: "#ffffff"}},
		},
	}
	frame, _ := New(10, 4, nil).Frame(comp, 15)
	if c := rgbaAt(frame, 1, 2); c.R != 255 {
		t.Errorf("left side should be revealed, got %v", c)
	}
	if c := rgbaAt(frame, 8, 2); c.R != 0 {
		t.Errorf("right side should still show the first scene, got %v", c)
	}
}

func TestElementMatrixCentres(t *testing.T) {
	transforms := []effects.Transform{{Op: effects.OpTranslate, Value: -50, Y: -50, Unit: "%"}}
	m := elementMatrix(100, 50, 20, 10, transforms)
	x, y := m.apply(0, 0)
	if math.Abs(x-90) > 1e-9 || math.Abs(y-45) > 1e-9 {
		t.Errorf("top-left maps to (%v, %v), want (90, 45)", x, y)
	}

	rotated := elementMatrix(0, 0, 10, 10, []effects.Transform{{Op: effects.OpRotate, Value: 90, Unit: "deg"}})
	x, y = rotated.apply(10, 5)
	if math.Abs(x-5) > 1e-9 || math.Abs(y-10) > 1e-9 {
		t.Errorf("rotation about the centre maps (10,5) to (%v, %v), want (5, 10)", x, y)
	}
}

func TestFitRect(t *testing.T) {
	box := image.Rect(0, 0, 100, 50)
	tests := []struct {
		fit  scene.ObjectFit
		want image.Rectangle
	}{
		{scene.FitFill, box},
		{scene.FitContain, image.Rect(25, 0, 75, 50)},
		{scene.FitCover, image.Rect(0, -25, 100, 75)},
	}
	for _, tt := range tests {
		if got := fitRect(box, 200, 200, tt.fit); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.fit, got, tt.want)
		}
	}
}

func TestBoxBlurKeepsUniformImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	boxBlur(img, 4)
	if c := img.RGBAAt(15, 15); c.R != 200 || c.A != 200 {
		t.Errorf("centre changed to %v", c)
	}
}

func TestParseShadow(t *testing.T) {
	sh, ok := parseShadow("0 4px 12px rgba(0, 0, 0, 0.3), 0 0 2px red")
	if !ok {
		t.Fatal("expected shadow")
	}
	if sh.dx != 0 || sh.dy != 4 || sh.blur != 12 {
		t.Errorf("unexpected shadow %+v", sh)
	}
	if math.Abs(sh.color.A-0.3) > 1e-9 {
		t.Errorf("alpha = %v", sh.color.A)
	}
	if _, ok := parseShadow("inset 0 0 4px black"); ok {
		t.Error("inset shadows are not drawn")
	}
	if _, ok := parseShadow("none"); ok {
		t.Error("none is not a shadow")
	}
}

func TestLayoutTextWraps(t *testing.T) {
	face, err := newFace(20, 400)
	if err != nil {
		t.Fatal(err)
	}
	defer face.Close()

	l := layoutText(face, "one two three four\nfive", 20, 1.2, 0, 80)
	if len(l.lines) < 3 {
		t.Fatalf("expected wrapping, got %q", l.lines)
	}
	for i, w := range l.widths {
		if w > 80 {
			t.Errorf("line %q is %v wide", l.lines[i], w)
		}
	}
	if l.lines[len(l.lines)-1] != "five" {
		t.Errorf("explicit break not kept: %q", l.lines)
	}
}
