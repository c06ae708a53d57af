package stitch

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// maxCanvasBytes guards against dimensions whose pixel buffer cannot be
// addressed at all.
const maxCanvasBytes = math.MaxInt32 * 4

// Page is one composited output image. It owns its pixel buffer, which may be
// a file mapping, so it must be closed once written.
type Page struct {
	Image *image.RGBA
	// Entries is the number of source images actually pasted on the page.
	Entries int

	release func() error
}

func (p *Page) Width() int  { return p.Image.Bounds().Dx() }
func (p *Page) Height() int { return p.Image.Bounds().Dy() }

// Close releases the pixel buffer. The page is unusable afterwards.
func (p *Page) Close() error {
	if p == nil || p.release == nil {
		return nil
	}

	err := p.release()
	p.release = nil
	p.Image = nil

	return err
}

func allocCanvas(width, height int, mmapThreshold int64) (*image.RGBA, func() error, error) {
	if width <= 0 || height <= 0 {
		return nil, nil, fmt.Errorf("%w: %dx%d", ErrCanvasAllocation, width, height)
	}

	size := int64(width) * int64(height) * 4
	if int64(height) > maxCanvasBytes/(int64(width)*4) {
		return nil, nil, fmt.Errorf("%w: %dx%d exceeds canvas limit", ErrCanvasAllocation, width, height)
	}

	if mmapThreshold > 0 && size > mmapThreshold {
		return mappedCanvas(width, height, size)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	return img, func() error { return nil }, nil
}

// mappedCanvas keeps the canvas pixels in a temp file mapping so very tall
// pages do not sit on the Go heap.
func mappedCanvas(width, height int, size int64) (*image.RGBA, func() error, error) {
	f, err := os.CreateTemp("", "chaptrix-canvas-*.tmp")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCanvasAllocation, err)
	}

	discard := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	if err := f.Truncate(size); err != nil {
		discard()
		return nil, nil, fmt.Errorf("%w: truncate: %v", ErrCanvasAllocation, err)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		discard()
		return nil, nil, fmt.Errorf("%w: mmap: %v", ErrCanvasAllocation, err)
	}

	img := &image.RGBA{
		Pix:    m,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	release := func() error {
		return errors.Join(m.Unmap(), f.Close(), os.Remove(f.Name()))
	}

	return img, release, nil
}
