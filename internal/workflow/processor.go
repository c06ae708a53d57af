// Package workflow turns a chapter URL into stitched pages and an archive:
// download, stitch, archive, clean up. Checker runs that for every tracked
// comic that has a new chapter.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brogergvhs/chaptrix/internal/archive"
	"github.com/brogergvhs/chaptrix/internal/chapters"
	"github.com/brogergvhs/chaptrix/internal/config"
	"github.com/brogergvhs/chaptrix/internal/downloader"
	"github.com/brogergvhs/chaptrix/internal/metrics"
	"github.com/brogergvhs/chaptrix/internal/providers"
	"github.com/brogergvhs/chaptrix/internal/stitch"
	"github.com/brogergvhs/chaptrix/internal/ui"
	"github.com/brogergvhs/chaptrix/internal/util"
)

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Progress follows one chapter through its phases.
type Progress interface {
	Phase(name string, total int)
	Update(done, total int, bytes int64)
	MarkDone()
	Abort()
}

type nopProgress struct{}

func (nopProgress) Phase(string, int)      {}
func (nopProgress) Update(int, int, int64) {}
func (nopProgress) MarkDone()              {}
func (nopProgress) Abort()                 {}

var ErrNoPages = errors.New("chapter produced no pages")

// Outcome describes a processed chapter. Pages are the files that went into
// the archive, in reading order.
type Outcome struct {
	Chapter    string
	Downloaded int
	Pages      []string
	Archive    string
	Report     *stitch.Report
}

type Processor struct {
	cfg     *config.Config
	scraper providers.Scraper
	dl      *downloader.Downloader
	log     Logger
	stats   *ui.Stats
}

func NewProcessor(cfg *config.Config, s providers.Scraper, dl *downloader.Downloader, log Logger, stats *ui.Stats) *Processor {
	metrics.Init()
	if stats == nil {
		stats = &ui.Stats{}
	}
	return &Processor{cfg: cfg, scraper: s, dl: dl, log: log, stats: stats}
}

func (p *Processor) Stats() *ui.Stats { return p.stats }

// Process downloads ch into <download_path>/<comic>/<chapter>_tmp, stitches
// it into <output>/<comic>/<chapter>/ and archives the result as
// <output>/<comic>/<chapter>.cbz.
func (p *Processor) Process(ctx context.Context, comic string, ch chapters.Chapter, h Progress) (out Outcome, err error) {
	if h == nil {
		h = nopProgress{}
	}
	out.Chapter = ch.Label

	rawDir := ch.DownloadDir(p.cfg.DownloadPath, comic)
	// With neither stitching nor archiving the downloaded pages are the result.
	keepRaw := p.cfg.KeepFolders || (!p.cfg.Stitch.Enabled && !p.cfg.Archive)
	defer func() {
		if !keepRaw {
			_ = os.RemoveAll(rawDir)
			util.RemoveIfEmpty(filepath.Dir(rawDir))
		}
		if err != nil {
			h.Abort()
			p.stats.Failed.Add(1)
			metrics.ObserveChapter("failed")
			return
		}
		h.MarkDone()
		p.stats.TotalChapters.Add(1)
		metrics.ObserveChapter("ok")
	}()

	urls, err := p.scraper.GetImages(ctx, ch.URL)
	if err != nil {
		return out, fmt.Errorf("chapter %s: %w", ch.Label, err)
	}

	h.Phase("download", len(urls))
	res, err := p.dl.Download(ctx, urls, rawDir, ch.URL, h)
	out.Downloaded = len(res.Files)
	p.stats.TotalImages.Add(int64(len(res.Files)))
	p.stats.TotalBytes.Add(res.Bytes)
	metrics.AddDownloadedPages(len(res.Files))
	if err != nil {
		return out, fmt.Errorf("chapter %s: %w", ch.Label, err)
	}
	if len(res.Files) == 0 {
		return out, fmt.Errorf("chapter %s: %w", ch.Label, ErrNoPages)
	}

	out.Pages = res.Files
	if p.cfg.Stitch.Enabled {
		pages, report, err := p.stitch(rawDir, comic, ch, len(res.Files), h)
		out.Report = report
		if err != nil {
			return out, fmt.Errorf("chapter %s: %w", ch.Label, err)
		}
		out.Pages = pages
	}

	if p.cfg.Archive {
		h.Phase("archive", 1)
		cbz := ch.CBZPath(p.cfg.Output, comic)
		if err := archive.CreateCBZ(out.Pages, cbz); err != nil {
			return out, fmt.Errorf("chapter %s: %w", ch.Label, err)
		}
		out.Archive = cbz
		h.Update(1, 1, 0)
		p.log.Infof("%s: chapter %s archived to %s", comic, ch.Label, cbz)
	}

	return out, nil
}

// stitchingSuffix marks the folder a chapter is stitched into before it
// replaces the previous output.
const stitchingSuffix = ".stitching"

// stitch writes the chapter into a staging folder and swaps it into place only
// when at least one page was written, so a failed re-run keeps the old pages.
func (p *Processor) stitch(rawDir, comic string, ch chapters.Chapter, n int, h Progress) ([]string, *stitch.Report, error) {
	opts := p.cfg.Stitch.Options()
	opts.Progress = func(done, total int) { h.Update(done, total, 0) }

	final := ch.StitchDir(p.cfg.Output, comic)
	staging := final + stitchingSuffix
	_ = os.RemoveAll(staging)
	defer func() {
		_ = os.RemoveAll(staging)
	}()

	h.Phase("stitch", n)
	written, report := stitch.Folder(rawDir, filepath.Join(staging, ch.BaseName()+opts.Format.Ext()), opts, p.log)

	p.stats.StitchedPages.Add(int64(len(written)))
	p.stats.SkippedImages.Add(int64(len(report.Skipped)))
	metrics.AddStitchedPages(len(written))
	for _, e := range report.Skipped {
		metrics.ObserveSkipped(e.Kind.String(), 1)
	}

	if len(written) == 0 {
		return nil, report, errors.Join(ErrNoPages, report.Err())
	}
	if report.Partial() {
		p.log.Warnf("%s: chapter %s stitched with %d skipped item(s): %v", comic, ch.Label, len(report.Skipped), report.Err())
	}

	if err := os.RemoveAll(final); err != nil {
		return nil, report, fmt.Errorf("replace %s: %w", final, err)
	}
	if err := os.Rename(staging, final); err != nil {
		return nil, report, fmt.Errorf("move stitched pages into %s: %w", final, err)
	}

	pages := make([]string, len(written))
	for i, w := range written {
		pages[i] = filepath.Join(final, filepath.Base(w))
	}
	report.Written = pages
	return pages, report, nil
}
