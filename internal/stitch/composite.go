package stitch

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Composite renders one batch onto a white canvas of targetWidth x
// batch.Height, top to bottom in batch order. An entry that cannot be
// resampled is logged and skipped and its slice stays white. Only a failed
// canvas allocation fails the page.
//
// Each entry's image reference is cleared once it has been pasted.
func Composite(batch Batch, targetWidth int, opts Options, log Logger) (*Page, []*EntryError, error) {
	log = orNop(log)

	img, release, err := allocCanvas(targetWidth, batch.Height, opts.MmapThreshold)
	if err != nil {
		return nil, nil, err
	}

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	var (
		interp  = opts.interpolator()
		skipped []*EntryError
		pasted  int
		y       int
	)

	for i := range batch.Entries {
		e := &batch.Entries[i]
		slot := image.Rect(0, y, targetWidth, y+e.TargetHeight)

		if err := paste(img, slot, e.Image, interp); err != nil {
			log.Errorf("processing image %s: %v", e.Name, err)
			skipped = append(skipped, newEntryError(KindResizeFailure, e.Index, e.Name, err))
		} else {
			pasted++
		}

		y += e.TargetHeight
		e.Image = nil
	}

	return &Page{Image: img, Entries: pasted, release: release}, skipped, nil
}

func paste(dst *image.RGBA, slot image.Rectangle, src image.Image, interp xdraw.Interpolator) (err error) {
	if src == nil {
		return errors.New("no pixel data")
	}

	sb := src.Bounds()
	if sb.Empty() {
		return fmt.Errorf("%w: empty source bounds", ErrInvalidImage)
	}

	// Decoders hand back lazily evaluated images; a broken one panics in At.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resample: %v", r)
		}
	}()

	interp.Scale(dst, slot, src, sb, xdraw.Over, nil)

	return nil
}
