package source

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var (
	ErrRemoteSource = errors.New("remote image sources must be fetched by the caller")
	ErrBadReference = errors.New("malformed image reference")
)

// DefaultDPI is used to rasterise PDF pages referenced by image elements.
const DefaultDPI = 150

// Loader resolves the src of an image element to pixels.
type Loader interface {
	Load(src string) (image.Image, error)
}

// FileLoader reads local files relative to Root. A PDF page is addressed as
// "deck.pdf#page=3" (1-based, default 1). Inline "data:" URIs are decoded.
type FileLoader struct {
	Root string
	DPI  int
}

func (l *FileLoader) Load(src string) (image.Image, error) {
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return nil, fmt.Errorf("%w: %s", ErrRemoteSource, src)
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	}

	path, page, err := splitPage(strings.TrimPrefix(src, "file://"))
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) && l.Root != "" {
		path = filepath.Join(l.Root, path)
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		doc, err := NewFitzPDFSource(path)
		if err != nil {
			return nil, err
		}
		defer doc.Close()
		return doc.RenderPage(page-1, l.DPI)
	}
	return decodeFile(path)
}

// splitPage separates a "#page=N" fragment from a path.
func splitPage(ref string) (string, int, error) {
	path, frag, found := strings.Cut(ref, "#")
	if !found {
		return path, 1, nil
	}
	value, ok := strings.CutPrefix(frag, "page=")
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	page, err := strconv.Atoi(value)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	return path, page, nil
}

func decodeDataURI(src string) (image.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: only base64 data URIs are supported", ErrBadReference)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReference, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	return img, err
}

type cached struct {
	img image.Image
	err error
}

// CachedLoader memoises another loader. Failures are cached too, so a bad
// reference is only attempted once per export.
type CachedLoader struct {
	Loader Loader

	mu    sync.Mutex
	cache map[string]cached
}

func NewCachedLoader(l Loader) *CachedLoader {
	return &CachedLoader{Loader: l, cache: make(map[string]cached)}
}

func (c *CachedLoader) Load(src string) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if hit, ok := c.cache[src]; ok {
		return hit.img, hit.err
	}
	img, err := c.Loader.Load(src)
	c.cache[src] = cached{img: img, err: err}
	return img, err
}
