package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ivlev/scene2video/internal/config"
	"github.com/ivlev/scene2video/internal/notify"
	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/timeline"
	"github.com/ivlev/scene2video/internal/video"
)

type recordingEncoder struct {
	pixels []color.RGBA
	params video.Params
	err    error
}

func (e *recordingEncoder) Encode(ctx context.Context, frames <-chan *image.RGBA, out string, params video.Params) error {
	e.params = params
	for img := range frames {
		e.pixels = append(e.pixels, img.RGBAAt(img.Bounds().Dx()/2, img.Bounds().Dy()/2))
		if params.Release != nil {
			params.Release(img)
		}
		if e.err != nil {
			return e.err
		}
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	stages []notify.Stage
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, ev.Stage)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func solidScene(id, color string, frames int) scene.Scene {
	return scene.Scene{
		ID:               id,
		DurationInFrames: frames,
		Background:       scene.Background{Type: scene.BackgroundSolid, Color: color},
	}
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Workers = 4
	cfg.OutputVideo = filepath.Join(t.TempDir(), "out.mp4")
	return cfg
}

func TestRunWritesFramesInOrder(t *testing.T) {
	comp := &scene.Composition{
		Meta: scene.Meta{Title: "order", Width: 8, Height: 8, FPS: 2},
		Scenes: []scene.Scene{
			solidScene("red", "#ff0000", 3),
			solidScene("blue", "#0000ff", 4),
		},
	}
	enc := &recordingEncoder{}
	pub := &recordingPublisher{}
	project := NewExportProject(testConfig(t), comp, nil, enc, pub)

	report, err := project.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.TotalFrames != 7 || len(enc.pixels) != 7 {
		t.Fatalf("frames = %d (report %d), want 7", len(enc.pixels), report.TotalFrames)
	}
	for i, px := range enc.pixels {
		wantRed := i < 3
		if (px.R == 255) != wantRed || (px.B == 255) == wantRed {
			t.Errorf("frame %d: pixel %v", i, px)
		}
	}

	if enc.params.Width != 8 || enc.params.FPS != 2 || enc.params.Duration != 3.5 {
		t.Errorf("params = %+v", enc.params)
	}
	if pub.stages[0] != notify.StageStarted || pub.stages[len(pub.stages)-1] != notify.StageDone {
		t.Errorf("stages = %v", pub.stages)
	}
}

func TestRunOddCanvasIsEvened(t *testing.T) {
	comp := &scene.Composition{
		Meta:   scene.Meta{Width: 7, Height: 5, FPS: 30},
		Scenes: []scene.Scene{solidScene("a", "#fff", 2)},
	}
	enc := &recordingEncoder{}
	if _, err := NewExportProject(testConfig(t), comp, nil, enc, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if enc.params.Width != 8 || enc.params.Height != 6 {
		t.Errorf("size = %dx%d, want 8x6", enc.params.Width, enc.params.Height)
	}
}

func TestRunRejectsInvalidComposition(t *testing.T) {
	comp := &scene.Composition{Meta: scene.Meta{Width: 8, Height: 8, FPS: 30}}
	_, err := NewExportProject(testConfig(t), comp, nil, &recordingEncoder{}, nil).Run(context.Background())
	if !errors.Is(err, scene.ErrNoScenes) {
		t.Fatalf("expected ErrNoScenes, got %v", err)
	}
}

func TestRunEncoderFailure(t *testing.T) {
	comp := &scene.Composition{
		Meta:   scene.Meta{Width: 4, Height: 4, FPS: 30},
		Scenes: []scene.Scene{solidScene("a", "#000", 60)},
	}
	boom := errors.New("ffmpeg died")
	pub := &recordingPublisher{}
	_, err := NewExportProject(testConfig(t), comp, nil, &recordingEncoder{err: boom}, pub).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected encoder error, got %v", err)
	}
	if last := pub.stages[len(pub.stages)-1]; last != notify.StageFailed {
		t.Errorf("last stage = %v, want failed", last)
	}
}

func TestRunCancelled(t *testing.T) {
	comp := &scene.Composition{
		Meta:   scene.Meta{Width: 4, Height: 4, FPS: 30},
		Scenes: []scene.Scene{solidScene("a", "#000", 300)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExportProject(testConfig(t), comp, nil, &blockingEncoder{}, nil).Run(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

// blockingEncoder waits for cancellation without reading frames.
type blockingEncoder struct{}

func (blockingEncoder) Encode(ctx context.Context, _ <-chan *image.RGBA, _ string, _ video.Params) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestFitDurations(t *testing.T) {
	fade := &scene.Transition{Type: scene.TransitionFade, DurationInFrames: 10}
	comp := &scene.Composition{
		Meta: scene.Meta{FPS: 30},
		Scenes: []scene.Scene{
			{ID: "a", DurationInFrames: 60, Transition: fade},
			{ID: "b", DurationInFrames: 60, Transition: fade},
			{ID: "c", DurationInFrames: 60},
		},
	}

	tests := []int{300, 301, 95, 1000}
	for _, target := range tests {
		fitted := FitDurations(comp, target)
		if got := timeline.TotalFrames(fitted.Scenes); got != target {
			t.Errorf("target %d: total = %d", target, got)
		}
		for _, s := range fitted.Scenes {
			if s.DurationInFrames < 10 {
				t.Errorf("target %d: scene %s shorter than its transition: %d", target, s.ID, s.DurationInFrames)
			}
		}
	}

	if comp.Scenes[0].DurationInFrames != 60 {
		t.Error("FitDurations must not modify its input")
	}
}

func TestFitDurationsTooShort(t *testing.T) {
	fade := &scene.Transition{Type: scene.TransitionFade, DurationInFrames: 10}
	comp := &scene.Composition{Scenes: []scene.Scene{
		{ID: "a", DurationInFrames: 30, Transition: fade},
		{ID: "b", DurationInFrames: 30},
	}}
	fitted := FitDurations(comp, 2)
	for _, s := range fitted.Scenes {
		if s.DurationInFrames < 10 {
			t.Errorf("scene %s clamped below transition: %d", s.ID, s.DurationInFrames)
		}
	}
}
