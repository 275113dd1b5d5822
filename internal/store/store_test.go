package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/scene2video/internal/scene"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testComposition(title string) *scene.Composition {
	return &scene.Composition{
		Meta: scene.Meta{Title: title, Width: 1920, Height: 1080, FPS: 30},
		Scenes: []scene.Scene{
			{
				ID:               "intro",
				DurationInFrames: 90,
				Background:       scene.Background{Type: scene.BackgroundSolid, Color: "#111"},
				Elements: scene.ElementList{
					&scene.TextElement{Placement: scene.Placement{ID: "title", X: 50, Y: 50}, Text: "Hello"},
				},
				Transition: &scene.Transition{Type: scene.TransitionFade, DurationInFrames: 15},
			},
			{ID: "outro", DurationInFrames: 60, Background: scene.Background{Type: scene.BackgroundSolid}},
		},
	}
}

func TestNewSQLiteCreatesTables(t *testing.T) {
	s := newTestStore(t)
	for _, table := range []string{"compositions", "exports", "_migrations"} {
		var name string
		err := s.Conn().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	first, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatalf("second NewSQLite() error = %v", err)
	}
	defer second.Close()

	var count int
	second.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count)
	if count != 2 {
		t.Errorf("migrations recorded = %d, want 2", count)
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, &Record{Composition: testComposition("Demo")})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID == "" || saved.Title != "Demo" {
		t.Errorf("saved = %+v", saved)
	}
	if saved.TotalFrames != 135 {
		t.Errorf("total frames = %d, want 135", saved.TotalFrames)
	}

	got, err := s.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Composition.Scenes) != 2 {
		t.Fatalf("scenes = %d", len(got.Composition.Scenes))
	}
	text, ok := got.Composition.Scenes[0].Elements[0].(*scene.TextElement)
	if !ok || text.Text != "Hello" {
		t.Errorf("element did not round-trip: %#v", got.Composition.Scenes[0].Elements[0])
	}
}

func TestSaveUpdateKeepsCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return clock }

	first, err := s.Save(ctx, &Record{Composition: testComposition("v1")})
	if err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(time.Hour)
	comp := testComposition("v2")
	comp.Scenes = comp.Scenes[:1]
	second, err := s.Save(ctx, &Record{ID: first.ID, Composition: comp})
	if err != nil {
		t.Fatal(err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.Equal(clock) {
		t.Errorf("updated_at = %v, want %v", second.UpdatedAt, clock)
	}
	if second.Title != "v2" || second.TotalFrames != 90 {
		t.Errorf("update not applied: %+v", second)
	}
}

func TestListOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	for _, title := range []string{"a", "b", "c"} {
		if _, err := s.Save(ctx, &Record{Composition: testComposition(title)}); err != nil {
			t.Fatal(err)
		}
		clock = clock.Add(500 * time.Millisecond)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Title != "c" || all[2].Title != "a" {
		t.Errorf("unexpected order: %v", titles(all))
	}

	limited, _ := s.List(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("limit ignored: %d", len(limited))
	}
}

func titles(recs []*Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec, _ := s.Save(ctx, &Record{Composition: testComposition("x")})

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if err := s.Delete(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: %v", err)
	}
}

func TestSaveWithoutComposition(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Save(context.Background(), &Record{ID: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestExports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec, _ := s.Save(ctx, &Record{Composition: testComposition("x")})

	exp, err := s.SaveExport(ctx, &Export{CompositionID: rec.ID})
	if err != nil {
		t.Fatalf("SaveExport() error = %v", err)
	}
	if exp.Status != ExportQueued {
		t.Errorf("status = %s, want queued", exp.Status)
	}

	exp.Status = ExportDone
	exp.Output = "out.mp4"
	if _, err := s.SaveExport(ctx, exp); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListExports(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != ExportDone || list[0].Output != "out.mp4" {
		t.Errorf("exports = %+v", list)
	}

	// Exports go with their composition.
	s.Delete(ctx, rec.ID)
	if _, err := s.GetExport(ctx, exp.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("export should be deleted with its composition: %v", err)
	}
}

func TestInterruptedExportsMarkedFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	rec, _ := s.Save(ctx, &Record{Composition: testComposition("x")})
	exp, _ := s.SaveExport(ctx, &Export{CompositionID: rec.ID, Status: ExportRunning})
	s.Close()

	reopened, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.GetExport(ctx, exp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != ExportFailed || got.Error == "" {
		t.Errorf("export = %+v", got)
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("SCENE2VIDEO_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SCENE2VIDEO_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := NewMongo(ctx, uri, "scene2video_test_"+NewID()[:8], nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	rec, err := s.Save(ctx, &Record{Composition: testComposition("mongo")})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, rec.ID)
	if err != nil || got.TotalFrames != 135 {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), "redis", "", "", "", nil); err == nil {
		t.Fatal("expected error")
	}
}
