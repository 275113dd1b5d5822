package system

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestImagePoolReturnsClearedImage(t *testing.T) {
	pool := NewImagePool()
	rect := image.Rect(0, 0, 4, 4)

	img := pool.Get(rect)
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	pool.Put(img)

	again := pool.Get(rect)
	for i, v := range again.Pix {
		if v != 0 {
			t.Fatalf("pixel byte %d = %d, want cleared", i, v)
		}
	}
	if again.Rect != rect {
		t.Errorf("rect = %v, want %v", again.Rect, rect)
	}
}

func TestImagePoolIgnoresForeignImages(t *testing.T) {
	pool := NewImagePool()
	pool.Put(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	pool.Put(nil)
}

func TestFindLatestFile(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "old.mp3")
	newer := filepath.Join(dir, "new.WAV")
	os.WriteFile(older, []byte("a"), 0644)
	os.WriteFile(newer, []byte("b"), 0644)
	os.WriteFile(filepath.Join(dir, "cover.png"), []byte("c"), 0644)

	past := time.Now().Add(-time.Hour)
	os.Chtimes(older, past, past)

	got, err := FindLatestAudio(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != newer {
		t.Errorf("got %s, want %s", got, newer)
	}

	if _, err := FindLatestFile(dir, ".pdf"); err == nil {
		t.Error("expected error when nothing matches")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecommendedWorkers(t *testing.T) {
	if n := RecommendedWorkers(context.Background(), 1920, 1080); n < 1 {
		t.Errorf("expected at least one worker, got %d", n)
	}
}
