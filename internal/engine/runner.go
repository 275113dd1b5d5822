package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ivlev/scene2video/internal/config"
	"github.com/ivlev/scene2video/internal/logging"
	"github.com/ivlev/scene2video/internal/notify"
	"github.com/ivlev/scene2video/internal/raster"
	"github.com/ivlev/scene2video/internal/source"
	"github.com/ivlev/scene2video/internal/store"
	"github.com/ivlev/scene2video/internal/video"
)

var ErrQueueFull = errors.New("export queue is full")

const queueSize = 64

// Runner executes export jobs one at a time, in submission order.
type Runner struct {
	repo     store.Repository
	cfg      *config.Config
	encoder  video.VideoEncoder
	notifier notify.Publisher
	images   source.Loader
	logger   *slog.Logger

	queue   chan string
	running atomic.Bool
	active  atomic.Int32
}

func NewRunner(repo store.Repository, cfg *config.Config, enc video.VideoEncoder, pub notify.Publisher, images source.Loader, logger *slog.Logger) *Runner {
	return &Runner{
		repo:     repo,
		cfg:      cfg,
		encoder:  enc,
		notifier: pub,
		images:   images,
		logger:   logging.WithComponent(logger, "runner"),
		queue:    make(chan string, queueSize),
	}
}

// Enqueue records a queued export of a stored composition.
func (r *Runner) Enqueue(ctx context.Context, compositionID, output string) (*store.Export, error) {
	exp, err := r.repo.SaveExport(ctx, &store.Export{
		CompositionID: compositionID,
		Status:        store.ExportQueued,
		Output:        output,
	})
	if err != nil {
		return nil, err
	}

	select {
	case r.queue <- exp.ID:
		return exp, nil
	default:
		r.fail(ctx, exp, ErrQueueFull)
		return nil, ErrQueueFull
	}
}

// Start processes queued exports until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}
	defer r.running.Store(false)

	r.logger.Info("export runner started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("export runner stopping")
			return
		case id := <-r.queue:
			r.process(ctx, id)
		}
	}
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Busy reports whether an export is rendering right now.
func (r *Runner) Busy() bool {
	return r.active.Load() > 0
}

func (r *Runner) process(ctx context.Context, id string) {
	r.active.Add(1)
	defer r.active.Add(-1)

	exp, err := r.repo.GetExport(ctx, id)
	if err != nil {
		r.logger.Error("failed to load export", "export_id", id, "error", err)
		return
	}
	logger := logging.WithCompositionID(r.logger, exp.CompositionID).With("export_id", exp.ID)

	rec, err := r.repo.Get(ctx, exp.CompositionID)
	if err != nil {
		r.fail(ctx, exp, fmt.Errorf("composition not found: %w", err))
		return
	}

	exp.Status = store.ExportRunning
	saved, err := r.repo.SaveExport(ctx, exp)
	if err != nil {
		r.fail(ctx, exp, fmt.Errorf("mark export running: %w", err))
		return
	}
	exp = saved
	logger.Info("processing export", "output", exp.Output)

	cfg := *r.cfg
	cfg.OutputVideo = exp.Output
	cfg.InputPath = rec.Title
	cfg.ShowStats = false

	meta := rec.Composition.Meta
	project := NewExportProject(&cfg, rec.Composition, raster.New(meta.Width, meta.Height, r.images), r.encoder, r.notifier)
	project.CompositionID = rec.ID
	project.Logger = logger

	report, err := project.Run(ctx)
	if err != nil {
		r.fail(context.WithoutCancel(ctx), exp, err)
		return
	}

	exp.Status = store.ExportDone
	exp.Error = ""
	if _, err := r.repo.SaveExport(ctx, exp); err != nil {
		logger.Error("failed to mark export done", "error", err)
		return
	}
	logger.Info("export completed", "frames", report.TotalFrames, "duration", report.Total)
}

func (r *Runner) fail(ctx context.Context, exp *store.Export, cause error) {
	r.logger.Error("export failed", "export_id", exp.ID, "error", cause)
	exp.Status = store.ExportFailed
	exp.Error = cause.Error()
	if _, err := r.repo.SaveExport(ctx, exp); err != nil {
		r.logger.Error("failed to mark export failed", "export_id", exp.ID, "error", err)
	}
}
