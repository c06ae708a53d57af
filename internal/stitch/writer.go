package stitch

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Save writes pages next to template as 1<ext>, 2<ext>, ... in page order.
// Only the directory and extension of template are used. A page that fails
// to write is logged and left out of the returned paths; the rest are still
// attempted. Every page is closed after its write attempt.
//
// With no pages Save logs a warning and returns nil without creating the
// output directory.
func Save(pages []*Page, template string, opts Options, log Logger) ([]string, []*EntryError) {
	log = orNop(log)

	if len(pages) == 0 {
		log.Warnf("no stitched pages to save for %s", template)
		return nil, nil
	}

	dir := filepath.Dir(template)
	format, ext := outputFormat(template, opts.Format)
	quality := opts.quality()

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Errorf("cannot create output folder %s: %v", dir, err)

		failed := make([]*EntryError, 0, len(pages))
		for i, p := range pages {
			_ = p.Close()
			failed = append(failed, newEntryError(KindWriteFailure, i, pageName(i), err))
		}

		return nil, failed
	}

	var (
		written []string
		failed  []*EntryError
	)

	for i, p := range pages {
		path := filepath.Join(dir, strconv.Itoa(i+1)+ext)

		err := writePage(path, p, format, quality)
		if cerr := p.Close(); cerr != nil {
			log.Debugf("release page %d: %v", i+1, cerr)
		}

		if err != nil {
			log.Errorf("saving stitched page %d to %s: %v", i+1, path, err)
			failed = append(failed, newEntryError(KindWriteFailure, i, pageName(i), err))
			continue
		}

		log.Infof("saved stitched page %d to %s", i+1, path)
		written = append(written, path)
	}

	return written, failed
}

// outputFormat picks the encoder and file extension. An explicit format wins
// for encoding; the extension always comes from the template when it has one.
func outputFormat(template string, f Format) (Format, string) {
	ext := filepath.Ext(template)

	if f == "" {
		if parsed, ok := ParseFormat(ext); ok {
			f = parsed
		} else {
			f = FormatJPEG
		}
	}
	if ext == "" {
		ext = f.Ext()
	}

	return f, ext
}

func writePage(path string, p *Page, f Format, quality int) (err error) {
	if p == nil || p.Image == nil {
		return errors.New("page has no pixels")
	}
	if limit := f.MaxDimension(); limit > 0 {
		if b := p.Image.Bounds(); b.Dx() > limit || b.Dy() > limit {
			return fmt.Errorf("%dx%d page exceeds the %s limit of %dpx", b.Dx(), b.Dy(), f, limit)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(out)
	if err := encode(bw, p.Image, f, quality); err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}

	return bw.Flush()
}

func pageName(i int) string {
	return "page " + strconv.Itoa(i+1)
}
