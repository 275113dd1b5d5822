package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/scene2video/internal/renderer"
	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/source"
)

// Rasterizer draws resolved scene states into RGBA frames of a fixed size.
// It holds no per-frame state and is safe for concurrent use as long as
// Images is.
type Rasterizer struct {
	Width, Height int
	Images        source.Loader
}

func New(width, height int, images source.Loader) *Rasterizer {
	return &Rasterizer{Width: width, Height: height, Images: images}
}

func (r *Rasterizer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// DrawScene paints the background and every element of st onto dst.
// Elements that cannot be drawn are skipped and reported in the joined
// error; the rest of the frame is still painted.
func (r *Rasterizer) DrawScene(dst *image.RGBA, st renderer.SceneState) error {
	r.paintBackground(dst, st.Background)

	var errs []error
	for i := range st.Elements {
		if err := r.drawElement(dst, &st.Elements[i]); err != nil {
			errs = append(errs, fmt.Errorf("element %q: %w", st.Elements[i].ID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Rasterizer) paintBackground(dst *image.RGBA, p renderer.Paint) {
	b := dst.Bounds()
	if p.Kind != scene.BackgroundGradient {
		c := MustColor(p.Color, Black)
		xdraw.Draw(dst, b, image.NewUniform(c.NRGBA()), image.Point{}, xdraw.Src)
		return
	}

	stops := make([]Color, len(p.Colors))
	for i, s := range p.Colors {
		stops[i] = MustColor(s, Black)
	}

	// CSS angles: 0deg points up, 180deg down, clockwise.
	sin, cos := math.Sincos(p.Direction * math.Pi / 180)
	w, h := float64(b.Dx()), float64(b.Dy())
	length := math.Abs(w*sin) + math.Abs(h*cos)
	cx, cy := w/2, h/2

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px, py := float64(x-b.Min.X)+0.5-cx, float64(y-b.Min.Y)+0.5-cy
			t := (px*sin-py*cos)/length + 0.5
			dst.Set(x, y, gradientAt(stops, t).NRGBA())
		}
	}
}

// gradientAt samples evenly spaced stops.
func gradientAt(stops []Color, t float64) Color {
	t = clamp01(t)
	segments := float64(len(stops) - 1)
	i := int(math.Min(math.Floor(t*segments), segments-1))
	return stops[i].Lerp(stops[i+1], t*segments-float64(i))
}

// drawElement rasterises the element into an upright layer, then maps the
// layer onto dst with the element's transform and opacity.
func (r *Rasterizer) drawElement(dst *image.RGBA, es *renderer.ElementState) error {
	if es.Opacity <= 0 {
		return nil
	}
	W, H := float64(r.Width), float64(r.Height)

	var (
		layer  *image.RGBA
		w, h   float64
		margin int
		err    error
	)
	switch {
	case es.Text != nil:
		layer, w, h, margin, err = r.textLayer(es)
	case es.Shape != nil:
		layer, w, h, margin = r.shapeLayer(es)
	case es.Image != nil:
		layer, w, h, margin, err = r.imageLayer(es)
	}
	if err != nil || layer == nil {
		return err
	}

	if es.Blur != nil && *es.Blur > 0 {
		boxBlur(layer, *es.Blur)
	}

	left, top := es.X/100*W, es.Y/100*H
	m := elementMatrix(left, top, w, h, es.Transforms).mul(translate(-float64(margin), -float64(margin)))

	var opts *xdraw.Options
	if es.Opacity < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(es.Opacity * 255))})}
	}
	xdraw.BiLinear.Transform(dst, m.aff3(), layer, layer.Bounds(), xdraw.Over, opts)
	return nil
}

func percentOf(v *float64, ref float64) float64 {
	if v == nil {
		return 0
	}
	return *v / 100 * ref
}

func blurMargin(es *renderer.ElementState) float64 {
	if es.Blur == nil {
		return 0
	}
	return 3 * *es.Blur
}

// newLayer allocates a transparent layer for a w x h box plus margin on
// every side and returns the inner box as a sub-image.
func newLayer(w, h float64, margin int) (*image.RGBA, *image.RGBA) {
	iw, ih := int(math.Ceil(w)), int(math.Ceil(h))
	layer := image.NewRGBA(image.Rect(0, 0, iw+2*margin, ih+2*margin))
	box := layer.SubImage(image.Rect(margin, margin, margin+iw, margin+ih)).(*image.RGBA)
	return layer, box
}

func (r *Rasterizer) shapeLayer(es *renderer.ElementState) (*image.RGBA, float64, float64, int) {
	sh := es.Shape
	w := percentOf(es.Width, float64(r.Width))
	h := percentOf(es.Height, float64(r.Height))
	if sh.Thickness != nil {
		h = *sh.Thickness
	}
	if w <= 0 || h <= 0 {
		return nil, 0, 0, 0
	}

	shadowSpec, hasShadow := parseShadow(sh.Shadow)
	extra := blurMargin(es)
	if hasShadow {
		extra += shadowSpec.extent()
	}
	margin := int(math.Ceil(extra))
	layer, box := newLayer(w, h, margin)

	var shape outline = rectOutline(float32(sh.BorderRadius))
	if sh.Round {
		shape = ellipse
	}

	if hasShadow {
		off := image.Pt(int(math.Round(shadowSpec.dx)), int(math.Round(shadowSpec.dy)))
		spread := int(math.Round(shadowSpec.spread))
		silhouette := layer.SubImage(box.Rect.Add(off).Inset(-spread)).(*image.RGBA)
		fillOutline(silhouette, shape, 0, shadowSpec.color)
		boxBlur(layer, shadowSpec.blur/2)
	}

	fill := MustColor(sh.Fill, Transparent)
	if sh.Border != nil && sh.Border.Width > 0 {
		fillOutline(box, shape, 0, MustColor(sh.Border.Color, Black))
		// The interior replaces the border colour.
		inner := image.NewRGBA(box.Rect)
		fillOutline(inner, shape, float32(sh.Border.Width), Color{A: 1})
		punchAndFill(box, inner, fill)
	} else {
		fillOutline(box, shape, 0, fill)
	}
	return layer, w, h, margin
}

// punchAndFill clears dst under the mask coverage and paints fill there.
func punchAndFill(dst, mask *image.RGBA, fill Color) {
	b := dst.Rect.Intersect(mask.Rect)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := uint32(mask.Pix[mask.PixOffset(x, y)+3])
			if a == 0 {
				continue
			}
			o := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				dst.Pix[o+c] = uint8(uint32(dst.Pix[o+c]) * (255 - a) / 255)
			}
		}
	}
	if fill.A > 0 {
		xdraw.DrawMask(dst, b, image.NewUniform(fill.NRGBA()), image.Point{}, mask, b.Min, xdraw.Over)
	}
}

func (r *Rasterizer) textLayer(es *renderer.ElementState) (*image.RGBA, float64, float64, int, error) {
	t := es.Text
	size := t.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	face, err := newFace(size, t.FontWeight)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer face.Close()

	maxWidth := percentOf(t.MaxWidth, float64(r.Width))
	if es.Width != nil {
		maxWidth = percentOf(es.Width, float64(r.Width))
	}
	l := layoutText(face, t.Content, size, t.LineHeight, t.LetterSpacing, maxWidth)

	contentW, contentH := l.width, l.height
	if es.Width != nil {
		contentW = percentOf(es.Width, float64(r.Width))
	}
	if es.Height != nil {
		contentH = percentOf(es.Height, float64(r.Height))
	}

	pad := 0.0
	if t.Badge != nil {
		pad = t.Badge.Padding
	}
	w, h := contentW+2*pad, contentH+2*pad
	if w <= 0 || h <= 0 {
		return nil, 0, 0, 0, nil
	}

	margin := int(math.Ceil(blurMargin(es)))
	layer, box := newLayer(w, h, margin)

	if t.Badge != nil {
		fillOutline(box, rectOutline(float32(t.Badge.BorderRadius)), 0, MustColor(t.Badge.Color, Transparent))
	}
	ip := int(math.Round(pad))
	content := box.SubImage(image.Rect(box.Rect.Min.X+ip, box.Rect.Min.Y+ip, box.Rect.Max.X-ip, box.Rect.Max.Y-ip)).(*image.RGBA)
	drawText(content, face, t, l)
	return layer, w, h, margin, nil
}

func (r *Rasterizer) imageLayer(es *renderer.ElementState) (*image.RGBA, float64, float64, int, error) {
	if r.Images == nil {
		return nil, 0, 0, 0, source.ErrRemoteSource
	}
	img, err := r.Images.Load(es.Image.Src)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	sb := img.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	if sw == 0 || sh == 0 {
		return nil, 0, 0, 0, nil
	}

	w := percentOf(es.Width, float64(r.Width))
	h := percentOf(es.Height, float64(r.Height))
	switch {
	case w == 0 && h == 0:
		w, h = sw, sh
	case w == 0:
		w = h * sw / sh
	case h == 0:
		h = w * sh / sw
	}

	margin := int(math.Ceil(blurMargin(es)))
	layer, box := newLayer(w, h, margin)
	target := fitRect(box.Rect, sw, sh, es.Image.ObjectFit)

	if es.Image.BorderRadius <= 0 {
		xdraw.CatmullRom.Scale(box, target, img, sb, xdraw.Over, nil)
		return layer, w, h, margin, nil
	}

	tmp := image.NewRGBA(box.Rect)
	xdraw.CatmullRom.Scale(tmp, target, img, sb, xdraw.Src, nil)
	mask := roundedMask(box.Rect.Size(), float32(es.Image.BorderRadius))
	xdraw.DrawMask(box, box.Rect, tmp, box.Rect.Min, mask, image.Point{}, xdraw.Over)
	return layer, w, h, margin, nil
}

// fitRect places an sw x sh image inside box according to object-fit.
func fitRect(box image.Rectangle, sw, sh float64, fit scene.ObjectFit) image.Rectangle {
	bw, bh := float64(box.Dx()), float64(box.Dy())
	var s float64
	switch fit {
	case scene.FitFill:
		return box
	case scene.FitContain:
		s = math.Min(bw/sw, bh/sh)
	default:
		s = math.Max(bw/sw, bh/sh)
	}
	dw, dh := sw*s, sh*s
	x0 := float64(box.Min.X) + (bw-dw)/2
	y0 := float64(box.Min.Y) + (bh-dh)/2
	return image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x0+dw)), int(math.Round(y0+dh)))
}
