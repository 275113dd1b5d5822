// Package store persists compositions and export jobs.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/timeline"
)

var ErrNotFound = errors.New("not found")

// Record is a stored composition.
type Record struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Composition *scene.Composition `json:"composition"`
	TotalFrames int                `json:"totalFrames"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type ExportStatus string

const (
	ExportQueued  ExportStatus = "queued"
	ExportRunning ExportStatus = "running"
	ExportDone    ExportStatus = "done"
	ExportFailed  ExportStatus = "failed"
)

// Export tracks one render of a stored composition to a video file.
type Export struct {
	ID            string       `json:"id"`
	CompositionID string       `json:"compositionId"`
	Status        ExportStatus `json:"status"`
	Output        string       `json:"output,omitempty"`
	Error         string       `json:"error,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Repository defines data access for compositions and exports
type Repository interface {
	// Save inserts or replaces a composition. An empty ID gets a new one;
	// the stored record is returned.
	Save(ctx context.Context, rec *Record) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]*Record, error)
	Delete(ctx context.Context, id string) error

	SaveExport(ctx context.Context, exp *Export) (*Export, error)
	GetExport(ctx context.Context, id string) (*Export, error)
	ListExports(ctx context.Context, compositionID string) ([]*Export, error)

	Close() error
}

func NewID() string {
	return uuid.New().String()
}

// prepare fills the derived fields of a record before it is written.
func prepare(rec *Record, now time.Time) (*Record, []byte, error) {
	if rec.Composition == nil {
		return nil, nil, fmt.Errorf("record %q has no composition", rec.ID)
	}
	out := *rec
	if out.ID == "" {
		out.ID = NewID()
	}
	if out.Title == "" {
		out.Title = out.Composition.Meta.Title
	}
	out.TotalFrames = timeline.TotalFrames(out.Composition.Scenes)
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now

	body, err := json.Marshal(out.Composition)
	if err != nil {
		return nil, nil, fmt.Errorf("encode composition: %w", err)
	}
	return &out, body, nil
}

func decodeBody(body []byte) (*scene.Composition, error) {
	comp, err := scene.Decode(body, scene.FormatJSON)
	if err != nil {
		return nil, err
	}
	return comp, nil
}

func prepareExport(exp *Export, now time.Time) *Export {
	out := *exp
	if out.ID == "" {
		out.ID = NewID()
	}
	if out.Status == "" {
		out.Status = ExportQueued
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	return &out
}

// Open picks the backend named by backend ("sqlite" or "mongo").
func Open(ctx context.Context, backend, dbPath, mongoURI, mongoDB string, logger *slog.Logger) (Repository, error) {
	switch backend {
	case "", "sqlite":
		return NewSQLite(dbPath, logger)
	case "mongo":
		return NewMongo(ctx, mongoURI, mongoDB, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
