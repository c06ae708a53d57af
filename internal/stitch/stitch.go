package stitch

import (
	"errors"
	"fmt"
	"time"
)

// Report collects what happened to every input of one stitching run.
type Report struct {
	// Inputs is the number of images offered to the run.
	Inputs int
	// Stitched is the number of images pasted onto an output page.
	Stitched int
	// Pages is the number of composite pages produced.
	Pages   int
	Written []string
	Skipped []*EntryError
}

func (r *Report) add(errs ...*EntryError) {
	r.Skipped = append(r.Skipped, errs...)
}

// Count returns how many skipped items are of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, e := range r.Skipped {
		if e.Kind == k {
			n++
		}
	}

	return n
}

// Partial reports whether anything was skipped.
func (r *Report) Partial() bool {
	return len(r.Skipped) > 0
}

// Err joins every skipped item, or returns nil when nothing was skipped.
func (r *Report) Err() error {
	if len(r.Skipped) == 0 {
		return nil
	}

	errs := make([]error, len(r.Skipped))
	for i, e := range r.Skipped {
		errs[i] = e
	}

	return errors.Join(errs...)
}

// Stitch composites sources into pages no taller than opts.MaxHeight (apart
// from single oversized images), capped to the encoder limit of opts.Format. An empty input returns nil. Image
// references are dropped from the working set as soon as they are pasted;
// the caller should not keep its own references if memory matters.
func Stitch(sources []Source, opts Options, log Logger) ([]*Page, *Report) {
	log = orNop(log)
	report := &Report{Inputs: len(sources)}

	if len(sources) == 0 {
		log.Warnf("no images to stitch")
		report.add(newEntryError(KindEmptyInput, -1, "", ErrEmptyInput))
		return nil, report
	}

	start := time.Now()

	width := ResolveWidth(sources, opts.TargetWidth)
	if opts.TargetWidth <= 0 {
		log.Infof("using auto-detected width: %dpx", width)
	}

	entries, invalid := Normalize(sources, width)
	for _, e := range invalid {
		log.Errorf("skipping image: %v", e)
	}
	report.add(invalid...)

	maxHeight := opts.pageLimit()
	if maxHeight != opts.MaxHeight {
		log.Warnf("%s pages cannot exceed %dpx, capping max height (was %d)", opts.Format, maxHeight, opts.MaxHeight)
	}

	total := len(entries)
	batches := Pack(entries, maxHeight)

	pages := make([]*Page, 0, len(batches))
	done := 0

	for i, b := range batches {
		if b.Oversized(maxHeight) {
			if limit := opts.Format.MaxDimension(); limit > 0 && b.Height > limit {
				log.Warnf("image %s is %dpx tall after resizing, above the %s limit of %dpx; its page cannot be written", b.Entries[0].Name, b.Height, opts.Format, limit)
			} else {
				log.Debugf("image %s alone exceeds max height (%dpx > %dpx)", b.Entries[0].Name, b.Height, maxHeight)
			}
		}
		log.Debugf("creating stitched page %d with height %dpx from %d image(s)", i+1, b.Height, len(b.Entries))

		page, skipped, err := Composite(b, width, opts, log)
		report.add(skipped...)

		done += len(b.Entries)
		if opts.Progress != nil {
			opts.Progress(done, total)
		}

		if err != nil {
			log.Errorf("creating stitched page %d: %v", i+1, err)
			report.add(newEntryError(KindCanvasAllocation, i, fmt.Sprintf("page %d", i+1), err))
			continue
		}

		report.Stitched += page.Entries
		pages = append(pages, page)
	}

	report.Pages = len(pages)
	log.Infof("stitching completed in %s, created %d image(s)", time.Since(start).Round(time.Millisecond), len(pages))

	return pages, report
}
