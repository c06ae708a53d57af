package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/brogergvhs/chaptrix/internal/chapters"
	"github.com/brogergvhs/chaptrix/internal/metrics"
	"github.com/brogergvhs/chaptrix/internal/providers"
	"github.com/brogergvhs/chaptrix/internal/tracker"
	"github.com/brogergvhs/chaptrix/internal/ui"

	"github.com/google/uuid"
)

// ChapterProcessor is what Checker hands new chapters to.
type ChapterProcessor interface {
	Process(ctx context.Context, comic string, ch chapters.Chapter, h Progress) (Outcome, error)
}

// CheckResult is the outcome of checking one comic.
type CheckResult struct {
	Comic   string
	Latest  string
	New     bool
	Outcome Outcome
	Err     error
}

type Checker struct {
	Store     *tracker.Store
	Scraper   providers.Scraper
	Processor ChapterProcessor
	Log       Logger
	// Progress returns the tracker for one chapter; nil disables progress.
	Progress func(label string) Progress
	Now      func() time.Time
}

// fieldLogger is a Logger that can carry structured fields.
type fieldLogger interface {
	With(args ...any) *ui.Logger
}

// runLogger tags every entry of one pass with its run id when the logger
// supports fields.
func (c *Checker) runLogger(runID string) Logger {
	if fl, ok := c.Log.(fieldLogger); ok {
		return fl.With("run", runID)
	}
	return c.Log
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run checks every tracked comic once and processes the latest chapter of
// those that moved on. Failures are per comic; the store is saved at the
// end either way. Only a cancelled context aborts the pass.
func (c *Checker) Run(ctx context.Context) ([]CheckResult, error) {
	metrics.Init()

	log := c.runLogger(uuid.NewString())
	start := c.now()
	comics := c.Store.List()
	log.Infof("checking %d comic(s)", len(comics))

	results := make([]CheckResult, 0, len(comics))
	for _, comic := range comics {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := c.check(ctx, log, comic)
		results = append(results, res)
	}

	finished := c.now()
	metrics.ObserveCheck(finished.Sub(start), finished)

	if err := c.Store.Save(); err != nil {
		return results, fmt.Errorf("save tracker: %w", err)
	}

	log.Infof("check finished in %s", finished.Sub(start).Round(time.Millisecond))
	return results, ctx.Err()
}

func (c *Checker) check(ctx context.Context, log Logger, comic tracker.Comic) CheckResult {
	res := CheckResult{Comic: comic.Name}

	list, err := c.Scraper.GetChapters(ctx, comic.URL)
	if err != nil {
		res.Err = err
		log.Errorf("%s: fetching chapters: %v", comic.Name, err)
		_ = c.Store.MarkChecked(comic.Name, "", c.now())
		return res
	}

	latest, ok := tracker.Latest(list)
	if !ok {
		log.Warnf("%s: no chapters found at %s", comic.Name, comic.URL)
		_ = c.Store.MarkChecked(comic.Name, "", c.now())
		return res
	}
	res.Latest = latest.Label

	if !tracker.HasNew(comic, latest) {
		log.Debugf("%s: no new chapter (latest %s)", comic.Name, latest.Label)
		_ = c.Store.MarkChecked(comic.Name, "", c.now())
		return res
	}

	res.New = true
	metrics.ObserveNewChapter(comic.Name)
	log.Infof("%s: new chapter %s (was %q)", comic.Name, latest.Label, comic.LastKnownChapter)

	var h Progress
	if c.Progress != nil {
		h = c.Progress(comic.Name + " " + latest.Label)
	}

	res.Outcome, res.Err = c.Processor.Process(ctx, comic.Name, chapters.Chapter{Chapter: latest}, h)
	if res.Err != nil {
		log.Errorf("%s: chapter %s: %v", comic.Name, latest.Label, res.Err)
		_ = c.Store.MarkChecked(comic.Name, "", c.now())
		return res
	}

	_ = c.Store.MarkChecked(comic.Name, latest.Label, c.now())
	return res
}

// Watch runs a check immediately and then every interval until ctx ends.
func (c *Checker) Watch(ctx context.Context, interval time.Duration, done func([]CheckResult, error)) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		results, err := c.Run(ctx)
		if done != nil {
			done(results, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
