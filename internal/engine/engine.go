package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/scene2video/internal/config"
	"github.com/ivlev/scene2video/internal/notify"
	"github.com/ivlev/scene2video/internal/raster"
	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/source"
	"github.com/ivlev/scene2video/internal/system"
	"github.com/ivlev/scene2video/internal/timeline"
	"github.com/ivlev/scene2video/internal/video"
)

// ExportProject renders every frame of a composition and streams it to the encoder.
type ExportProject struct {
	Config        *config.Config
	Composition   *scene.Composition
	CompositionID string
	Rasterizer    *raster.Rasterizer
	Encoder       video.VideoEncoder
	Notifier      notify.Publisher
	Logger        *slog.Logger

	// BenchmarkLog is where the stats line is appended; empty means benchmark.log.
	BenchmarkLog string

	warned sync.Map
}

func NewExportProject(cfg *config.Config, comp *scene.Composition, r *raster.Rasterizer, enc video.VideoEncoder, pub notify.Publisher) *ExportProject {
	return &ExportProject{
		Config:      cfg,
		Composition: comp,
		Rasterizer:  r,
		Encoder:     enc,
		Notifier:    pub,
	}
}

// Report summarises a finished export.
type Report struct {
	TotalFrames int
	Workers     int
	Total       time.Duration
	// Render is the CPU time spent rasterising, summed over workers.
	Render time.Duration
	FPS    float64
}

func (p *ExportProject) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()
	comp := p.Composition

	if err := scene.Validate(comp); err != nil {
		return nil, fmt.Errorf("композиция некорректна: %w", err)
	}

	if p.Config.FitAudio && p.Config.AudioPath != "" {
		seconds, err := system.GetAudioDuration(p.Config.AudioPath)
		if err != nil {
			log.Printf("[!] Не удалось определить длительность аудио: %v", err)
		} else {
			target := int(seconds*float64(comp.Meta.FPS) + 0.5)
			comp = FitDurations(comp, target)
			fmt.Printf("[*] Сцены масштабированы под аудио: %.2fs\n", seconds)
		}
	}

	total := timeline.TotalFrames(comp.Scenes)
	fps := comp.Meta.FPS
	width, height := evenSize(comp.Meta.Width, comp.Meta.Height)
	if width != comp.Meta.Width || height != comp.Meta.Height {
		fmt.Printf("[!] Размер выровнен до %dx%d для yuv420p\n", width, height)
	}

	r := p.Rasterizer
	if r == nil || r.Width != width || r.Height != height {
		var images source.Loader
		if r != nil {
			images = r.Images
		}
		r = raster.New(width, height, images)
	}

	workers := p.Config.Workers
	if workers <= 0 {
		workers = system.RecommendedWorkers(ctx, width, height)
	}
	workers = max(min(workers, total), 1)

	fmt.Println("--- [PROJECT: SCENE EXPORT] ---")
	fmt.Printf("[*] Композиция: %s | Сцен: %d | Кадров: %d (%.2fs)\n", comp.Meta.Title, len(comp.Scenes), total, timeline.Seconds(total, fps))
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | Воркеров: %d\n", width, height, fps, workers)
	fmt.Println("-----------------------------")

	p.publish(ctx, notify.Event{Stage: notify.StageStarted, TotalFrames: total})

	params := video.Params{
		Width:       width,
		Height:      height,
		FPS:         fps,
		Encoder:     p.Config.VideoEncoder,
		Quality:     p.Config.Quality,
		AudioPath:   p.Config.AudioPath,
		AudioVolume: p.Config.AudioVolume,
		Duration:    timeline.Seconds(total, fps),
		Release:     system.PutImage,
	}

	var renderNanos atomic.Int64
	err := p.pipeline(ctx, comp, r, total, workers, params, &renderNanos)
	if err != nil {
		p.publish(context.WithoutCancel(ctx), notify.Event{Stage: notify.StageFailed, TotalFrames: total, Error: err.Error()})
		return nil, err
	}
	p.publish(ctx, notify.Event{Stage: notify.StageDone, Frame: total, TotalFrames: total, Output: p.Config.OutputVideo})

	totalTime := time.Since(startTime)
	report := &Report{
		TotalFrames: total,
		Workers:     workers,
		Total:       totalTime,
		Render:      time.Duration(renderNanos.Load()),
		FPS:         float64(total) / totalTime.Seconds(),
	}
	if p.Config.ShowStats {
		p.printReport(ctx, report)
	}
	return report, nil
}

// pipeline: dispatcher -> render pool -> ordered slots -> encoder.
func (p *ExportProject) pipeline(ctx context.Context, comp *scene.Composition, r *raster.Rasterizer, total, workers int, params video.Params, renderNanos *atomic.Int64) error {
	g, gctx := errgroup.WithContext(ctx)

	// Очередь слотов ограничивает число кадров в памяти.
	slots := make(chan chan *image.RGBA, workers*2)
	frames := make(chan *image.RGBA, workers)

	g.Go(func() error {
		defer close(slots)
		pool, pctx := errgroup.WithContext(gctx)
		pool.SetLimit(workers)
		for i := 0; i < total; i++ {
			slot := make(chan *image.RGBA, 1)
			select {
			case slots <- slot:
			case <-pctx.Done():
				return pool.Wait()
			}
			frame := i
			pool.Go(func() error {
				start := time.Now()
				img := p.renderFrame(comp, r, frame)
				renderNanos.Add(int64(time.Since(start)))
				slot <- img
				return nil
			})
		}
		return pool.Wait()
	})

	g.Go(func() error {
		defer close(frames)
		step := max(params.FPS, 1)
		done := 0
		for slot := range slots {
			var img *image.RGBA
			select {
			case img = <-slot:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case frames <- img:
			case <-gctx.Done():
				system.PutImage(img)
				return gctx.Err()
			}
			done++
			if done%step == 0 || done == total {
				fmt.Printf("[>] Ready: %d/%d\n", done, total)
				p.publish(gctx, notify.Event{Stage: notify.StageProgress, Frame: done, TotalFrames: total})
			}
		}
		return nil
	})

	g.Go(func() error {
		if err := p.Encoder.Encode(gctx, frames, p.Config.OutputVideo, params); err != nil {
			return fmt.Errorf("ошибка кодирования видео: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// renderFrame never fails: element errors are logged once and the rest of
// the frame is still drawn.
func (p *ExportProject) renderFrame(comp *scene.Composition, r *raster.Rasterizer, frame int) *image.RGBA {
	img, err := r.Frame(comp, frame)
	if err != nil {
		msg := err.Error()
		if _, seen := p.warned.LoadOrStore(msg, true); !seen {
			log.Printf("[!] Кадр %d отрисован с ошибками: %v", frame, err)
		}
	}
	return img
}

func (p *ExportProject) publish(ctx context.Context, ev notify.Event) {
	if p.Notifier == nil {
		return
	}
	ev.CompositionID = p.CompositionID
	ev.Time = time.Now()
	if err := p.Notifier.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		if p.Logger != nil {
			p.Logger.Warn("failed to publish progress", "stage", ev.Stage, "error", err)
		}
	}
}

func (p *ExportProject) printReport(ctx context.Context, rep *Report) {
	host := system.CollectHostStats(ctx)
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"%s\n"+
			"Frames: %d | Workers: %d\n"+
			"Total Time: %.2fs\n"+
			"Rendering (CPU, all workers): %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, host, rep.TotalFrames, rep.Workers,
		rep.Total.Seconds(), rep.Render.Seconds(), rep.FPS,
	)
	fmt.Print(report)

	// Логирование в файл
	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Frames: %d | Workers: %d | Total: %.2fs | Render: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.InputPath),
		rep.TotalFrames,
		rep.Workers,
		rep.Total.Seconds(),
		rep.Render.Seconds(),
		rep.FPS,
	)

	path := p.BenchmarkLog
	if path == "" {
		path = "benchmark.log"
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("[!] Не удалось записать %s: %v\n", path, err)
		return
	}
	f.WriteString(logEntry)
	f.Close()
}

func evenSize(w, h int) (int, int) {
	return w + w%2, h + h%2
}

// FitDurations rescales scene durations so the composition lasts target
// frames. Transition lengths are kept; scenes never get shorter than their
// transitions. When target is too short for that, the result is as close as
// the transitions allow.
func FitDurations(comp *scene.Composition, target int) *scene.Composition {
	out := &scene.Composition{Meta: comp.Meta, Scenes: append([]scene.Scene(nil), comp.Scenes...)}
	if len(out.Scenes) == 0 || target <= 0 {
		return out
	}

	overlaps, sum := 0, 0
	for i, s := range out.Scenes {
		overlaps += timeline.Overlap(out.Scenes, i)
		sum += s.DurationInFrames
	}
	if sum <= 0 {
		return out
	}

	// Сумма сегментов = целевая длительность + все перекрытия
	scale := float64(target+overlaps) / float64(sum)
	cum, prev := 0.0, 0
	for i := range out.Scenes {
		cum += float64(out.Scenes[i].DurationInFrames) * scale
		next := int(cum + 0.5)
		d := next - prev
		prev = next

		floor := 1
		if i > 0 {
			floor = max(floor, timeline.Overlap(out.Scenes, i-1))
		}
		floor = max(floor, timeline.Overlap(out.Scenes, i))
		out.Scenes[i].DurationInFrames = max(d, floor)
	}
	return out
}
