package source

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestImageSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 4, 2)
	writePNG(t, filepath.Join(dir, "a.png"), 8, 6)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644)

	src, err := NewImageSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	if src.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", src.PageCount())
	}
	if filepath.Base(src.PagePath(0)) != "a.png" {
		t.Errorf("pages not sorted: %s", src.PagePath(0))
	}
	w, h, err := src.GetPageDimensions(0)
	if err != nil || w != 8 || h != 6 {
		t.Errorf("dimensions = %vx%v, %v", w, h, err)
	}
	if _, err := src.RenderPage(5, 72); !errors.Is(err, ErrPageRange) {
		t.Errorf("expected ErrPageRange, got %v", err)
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "logo.png"), 3, 3)
	l := &FileLoader{Root: dir}

	img, err := l.Load("logo.png")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Bounds().Dx() != 3 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}

	if _, err := l.Load("https://example.com/logo.png"); !errors.Is(err, ErrRemoteSource) {
		t.Errorf("expected ErrRemoteSource, got %v", err)
	}
	if _, err := l.Load("deck.pdf#slide=2"); !errors.Is(err, ErrBadReference) {
		t.Errorf("expected ErrBadReference, got %v", err)
	}
	if _, err := l.Load("missing.png"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileLoaderDataURI(t *testing.T) {
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 5)))
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	img, err := (&FileLoader{}).Load(uri)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Bounds().Dy() != 5 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	if _, err := (&FileLoader{}).Load("data:text/plain,hello"); !errors.Is(err, ErrBadReference) {
		t.Errorf("expected ErrBadReference, got %v", err)
	}
}

func TestSplitPage(t *testing.T) {
	tests := []struct {
		ref  string
		path string
		page int
		ok   bool
	}{
		{"deck.pdf", "deck.pdf", 1, true},
		{"deck.pdf#page=4", "deck.pdf", 4, true},
		{"deck.pdf#page=x", "", 0, false},
		{"deck.pdf#zoom=2", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			path, page, err := splitPage(tt.ref)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if path != tt.path || page != tt.page {
				t.Errorf("got %q page %d, want %q page %d", path, page, tt.path, tt.page)
			}
		})
	}
}

type countingLoader struct{ calls int }

func (c *countingLoader) Load(src string) (image.Image, error) {
	c.calls++
	if src == "bad" {
		return nil, errors.New("boom")
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func TestCachedLoader(t *testing.T) {
	inner := &countingLoader{}
	l := NewCachedLoader(inner)

	for i := 0; i < 3; i++ {
		l.Load("a")
		l.Load("bad")
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 underlying loads, got %d", inner.calls)
	}
	if _, err := l.Load("bad"); err == nil {
		t.Error("cached failure should still be reported")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "only.png"), 2, 2)

	src, err := Open(filepath.Join(dir, "only.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	if _, ok := src.(*ImageSource); !ok || src.PageCount() != 1 {
		t.Errorf("Open(png) = %T with %d pages", src, src.PageCount())
	}

	if _, err := Open(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing pdf")
	}
}
