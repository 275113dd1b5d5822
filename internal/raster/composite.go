package raster

import (
	"errors"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/scene2video/internal/renderer"
	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/system"
	"github.com/ivlev/scene2video/internal/timeline"
)

// Frame renders one composition frame, compositing both scenes while a
// transition is running. The image comes from the shared pool; hand it back
// with system.PutImage once it has been consumed.
func (r *Rasterizer) Frame(comp *scene.Composition, frame int) (*image.RGBA, error) {
	b := r.Bounds()
	dst := system.GetImage(b)

	pos, ok := timeline.Locate(comp.Scenes, frame)
	if !ok {
		xdraw.Draw(dst, b, image.NewUniform(Black.NRGBA()), image.Point{}, xdraw.Src)
		return dst, nil
	}
	fps := comp.Meta.FPS

	if pos.Handoff == nil {
		err := r.DrawScene(dst, renderer.RenderScene(comp.Scenes[pos.Scene], pos.LocalFrame, fps))
		return dst, err
	}

	h := pos.Handoff
	from := system.GetImage(b)
	defer system.PutImage(from)
	to := system.GetImage(b)
	defer system.PutImage(to)

	errFrom := r.DrawScene(from, renderer.RenderScene(comp.Scenes[h.From], h.FromFrame, fps))
	errTo := r.DrawScene(to, renderer.RenderScene(comp.Scenes[h.To], pos.LocalFrame, fps))

	exiting, entering := timeline.Presentation(h.Transition, h.Progress)
	xdraw.Draw(dst, b, image.NewUniform(Black.NRGBA()), image.Point{}, xdraw.Src)
	r.composite(dst, from, exiting)
	r.composite(dst, to, entering)
	return dst, errors.Join(errFrom, errTo)
}

// composite draws a full-canvas scene image with a transition layer applied.
func (r *Rasterizer) composite(dst, src *image.RGBA, l timeline.Layer) {
	if !l.Visible || l.Opacity <= 0 {
		return
	}
	b := r.Bounds()
	W, H := float64(r.Width), float64(r.Height)

	opts := &xdraw.Options{}
	if l.Opacity < 1 {
		opts.SrcMask = image.NewUniform(color.Alpha{A: uint8(math.Round(l.Opacity * 255))})
	}
	switch l.Clip.Kind {
	case timeline.ClipRect:
		mask := image.NewAlpha(b)
		clip := image.Rect(
			int(math.Round(l.Clip.X0*W)), int(math.Round(l.Clip.Y0*H)),
			int(math.Round(l.Clip.X1*W)), int(math.Round(l.Clip.Y1*H)),
		)
		xdraw.Draw(mask, clip, image.Opaque, image.Point{}, xdraw.Src)
		opts.DstMask = mask
	case timeline.ClipSweep:
		opts.DstMask = sweepMask(b, l.Clip.Sweep)
	}

	cx := W / 2
	m := translate(l.TranslateX*W, l.TranslateY*H).
		mul(translate(cx, 0)).
		mul(scale(l.ScaleX(), 1)).
		mul(translate(-cx, 0))

	if m == identityAffine() && opts.SrcMask == nil && opts.DstMask == nil {
		xdraw.Draw(dst, b, src, image.Point{}, xdraw.Over)
		return
	}
	xdraw.BiLinear.Transform(dst, m.aff3(), src, src.Bounds(), xdraw.Over, opts)
}
