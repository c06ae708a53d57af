package stitch

import (
	"fmt"
	"image"
	"math"
)

// Source is one decoded input image and the name it is reported under.
type Source struct {
	Name  string
	Image image.Image
}

// Entry is a source planned for a given output width. No pixels are touched
// until the compositor pastes it.
type Entry struct {
	Index        int
	Name         string
	Image        image.Image
	TargetHeight int
}

// ResolveWidth returns requested when positive, otherwise the widest source.
func ResolveWidth(sources []Source, requested int) int {
	if requested > 0 {
		return requested
	}

	width := 0
	for _, s := range sources {
		if s.Image == nil {
			continue
		}
		if w := s.Image.Bounds().Dx(); w > width {
			width = w
		}
	}

	return width
}

// TargetHeight scales height by targetWidth/width, rounded to the nearest
// pixel. The result is at least 1 for valid input.
func TargetHeight(width, height, targetWidth int) (int, error) {
	if width <= 0 || height <= 0 || targetWidth <= 0 {
		return 0, ErrInvalidImage
	}

	h := int(math.Round(float64(targetWidth) * float64(height) / float64(width)))
	if h < 1 {
		h = 1
	}

	return h, nil
}

// Normalize plans every source for targetWidth. Sources without usable
// dimensions are returned as errors and left out; the rest keep their order.
func Normalize(sources []Source, targetWidth int) ([]Entry, []*EntryError) {
	entries := make([]Entry, 0, len(sources))
	var invalid []*EntryError

	for i, s := range sources {
		if s.Image == nil {
			invalid = append(invalid, newEntryError(KindInvalidImage, i, s.Name, ErrInvalidImage))
			continue
		}

		b := s.Image.Bounds()
		h, err := TargetHeight(b.Dx(), b.Dy(), targetWidth)
		if err != nil {
			invalid = append(invalid, newEntryError(KindInvalidImage, i, s.Name,
				fmt.Errorf("%dx%d at width %d: %w", b.Dx(), b.Dy(), targetWidth, err)))
			continue
		}

		entries = append(entries, Entry{
			Index:        i,
			Name:         s.Name,
			Image:        s.Image,
			TargetHeight: h,
		})
	}

	return entries, invalid
}
