// Package source turns PDF pages and image files into pixels for image
// elements and for drafting compositions.
package source

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
)

var ErrPageRange = errors.New("page out of range")

// Source is a paged document whose pages can be rasterised.
type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks the source implementation for path by extension.
func Open(path string) (Source, error) {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return NewFitzPDFSource(path)
	}
	return NewImageSource(path)
}

// FitzPDFSource renders PDF pages with MuPDF. A fitz document is not safe
// for concurrent use, so calls are serialised on one handle.
type FitzPDFSource struct {
	path  string
	pages int

	mu  sync.Mutex
	doc *fitz.Document
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &FitzPDFSource{doc: doc, path: path, pages: doc.NumPage()}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.pages
}

func (f *FitzPDFSource) checkPage(index int) error {
	if index < 0 || index >= f.pages {
		return fmt.Errorf("%w: %s has %d pages, asked for index %d", ErrPageRange, f.path, f.pages, index)
	}
	return nil
}

// GetPageDimensions returns the page size in points.
func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	if err := f.checkPage(index); err != nil {
		return 0, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage rasterises page index; dpi <= 0 means DefaultDPI.
func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if err := f.checkPage(index); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	img, err := f.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render %s page %d: %w", f.path, index+1, err)
	}
	return img, nil
}

func (f *FitzPDFSource) Path() string { return f.path }

func (f *FitzPDFSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.Close()
}
