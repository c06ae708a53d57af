package stitch

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{R: 220, G: 20, B: 20, A: 255}
	green = color.RGBA{R: 20, G: 200, B: 40, A: 255}
	blue  = color.RGBA{R: 30, G: 40, B: 210, A: 255}
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func sources(imgs ...image.Image) []Source {
	out := make([]Source, len(imgs))
	for i, img := range imgs {
		out[i] = Source{Name: fmt.Sprintf("%d.png", i+1), Image: img}
	}
	return out
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()

	require.NoError(t, png.Encode(f, img))
}

func requireColorNear(t *testing.T, want color.RGBA, got color.Color) {
	t.Helper()

	r, g, b, _ := got.RGBA()
	diff := func(a uint8, b uint32) int {
		d := int(a) - int(b>>8)
		if d < 0 {
			d = -d
		}
		return d
	}

	const tolerance = 3
	if diff(want.R, r) > tolerance || diff(want.G, g) > tolerance || diff(want.B, b) > tolerance {
		t.Fatalf("color = (%d,%d,%d), want near %v", r>>8, g>>8, b>>8, want)
	}
}

// brokenImage reports sane bounds but panics when its pixels are read.
type brokenImage struct {
	rect image.Rectangle
}

func (b brokenImage) ColorModel() color.Model { return color.RGBAModel }
func (b brokenImage) Bounds() image.Rectangle { return b.rect }
func (b brokenImage) At(int, int) color.Color { panic("truncated pixel data") }

type recordingLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *recordingLogger) Debugf(string, ...any) {}
func (l *recordingLogger) Infof(string, ...any)  {}

func (l *recordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}
