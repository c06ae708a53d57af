package workflow

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brogergvhs/chaptrix/internal/chapters"
	"github.com/brogergvhs/chaptrix/internal/config"
	"github.com/brogergvhs/chaptrix/internal/downloader"
	"github.com/brogergvhs/chaptrix/internal/providers"
	"github.com/brogergvhs/chaptrix/internal/stitch"
	"github.com/brogergvhs/chaptrix/internal/tracker"
	"github.com/brogergvhs/chaptrix/internal/ui"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string][]byte{
		"/p/1.png":   pngBytes(t, 100, 200, color.RGBA{255, 0, 0, 255}),
		"/p/2.png":   pngBytes(t, 100, 200, color.RGBA{0, 255, 0, 255}),
		"/p/3.png":   pngBytes(t, 50, 100, color.RGBA{0, 0, 255, 255}),
		"/p/bad.png": []byte("truncated"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeScraper struct {
	chapters map[string][]providers.Chapter
	images   []string
	err      error
}

func (f *fakeScraper) GetChapters(_ context.Context, url string) ([]providers.Chapter, error) {
	if list, ok := f.chapters[url]; ok {
		return list, nil
	}
	return nil, errors.New("boom")
}

func (f *fakeScraper) GetImages(context.Context, string) ([]string, error) {
	return f.images, f.err
}

type phaseRecorder struct {
	mu     sync.Mutex
	phases []string
	done   bool
	abort  bool
}

func (p *phaseRecorder) Phase(name string, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phases = append(p.phases, name)
}
func (p *phaseRecorder) Update(int, int, int64) {}
func (p *phaseRecorder) MarkDone()              { p.done = true }
func (p *phaseRecorder) Abort()                 { p.abort = true }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Output = filepath.Join(root, "out")
	cfg.DownloadPath = filepath.Join(root, "dl")
	cfg.Stitch.Format = "png"
	cfg.Stitch.MaxHeight = 450
	return cfg
}

func newProcessor(cfg *config.Config, srv *httptest.Server, s providers.Scraper) *Processor {
	dl := downloader.New(srv.Client(), nil, downloader.Options{Workers: 2, Attempts: 1, RetryDelay: time.Millisecond})
	return NewProcessor(cfg, s, dl, ui.NopLogger(), nil)
}

func cbzEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

var chapter5 = chapters.Chapter{Chapter: providers.Chapter{URL: "https://reader/ch5", Label: "5", Title: "Chapter 5"}}

func TestProcessStitchesAndArchives(t *testing.T) {
	srv := pageServer(t)
	cfg := testConfig(t)
	s := &fakeScraper{images: []string{srv.URL + "/p/1.png", srv.URL + "/p/2.png", srv.URL + "/p/3.png"}}
	p := newProcessor(cfg, srv, s)
	rec := &phaseRecorder{}

	out, err := p.Process(context.Background(), "Tower", chapter5, rec)
	require.NoError(t, err)

	stitched := filepath.Join(cfg.Output, "tower", "5")
	assert.Equal(t, []string{filepath.Join(stitched, "1.png"), filepath.Join(stitched, "2.png")}, out.Pages)
	assert.Equal(t, 3, out.Downloaded)
	assert.Equal(t, filepath.Join(cfg.Output, "tower", "5.cbz"), out.Archive)
	assert.Equal(t, []string{"1.png", "2.png"}, cbzEntries(t, out.Archive))

	require.NotNil(t, out.Report)
	assert.Equal(t, 3, out.Report.Stitched)
	assert.False(t, out.Report.Partial())

	img, err := stitch.DecodeFile(out.Pages[0])
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 400), img.Bounds())

	assert.Equal(t, []string{"download", "stitch", "archive"}, rec.phases)
	assert.True(t, rec.done)
	assert.NoDirExists(t, filepath.Join(cfg.DownloadPath, "tower"), "raw pages cleaned up")
	assert.NoDirExists(t, stitched+".stitching")

	assert.Equal(t, int64(1), p.Stats().TotalChapters.Load())
	assert.Equal(t, int64(2), p.Stats().StitchedPages.Load())
}

func TestProcessWithoutStitching(t *testing.T) {
	srv := pageServer(t)
	cfg := testConfig(t)
	cfg.Stitch.Enabled = false
	cfg.KeepFolders = true
	s := &fakeScraper{images: []string{srv.URL + "/p/1.png", srv.URL + "/p/2.png"}}

	out, err := newProcessor(cfg, srv, s).Process(context.Background(), "Tower", chapter5, nil)
	require.NoError(t, err)

	assert.Nil(t, out.Report)
	assert.Equal(t, []string{"001.png", "002.png"}, cbzEntries(t, out.Archive))
	assert.DirExists(t, filepath.Join(cfg.DownloadPath, "tower", "5_tmp"))
}

func TestProcessFailures(t *testing.T) {
	srv := pageServer(t)
	cfg := testConfig(t)

	rec := &phaseRecorder{}
	p := newProcessor(cfg, srv, &fakeScraper{err: errors.New("site down")})
	_, err := p.Process(context.Background(), "Tower", chapter5, rec)
	require.Error(t, err)
	assert.True(t, rec.abort)
	assert.Equal(t, int64(1), p.Stats().Failed.Load())

	p = newProcessor(cfg, srv, &fakeScraper{images: []string{srv.URL + "/p/404.png"}})
	_, err = p.Process(context.Background(), "Tower", chapter5, nil)
	require.ErrorIs(t, err, downloader.ErrBrokenPages)
	assert.NoDirExists(t, filepath.Join(cfg.DownloadPath, "tower"))
}

func TestProcessKeepsRawPagesWhenTheyAreTheOnlyOutput(t *testing.T) {
	srv := pageServer(t)
	cfg := testConfig(t)
	cfg.Stitch.Enabled = false
	cfg.Archive = false
	s := &fakeScraper{images: []string{srv.URL + "/p/1.png", srv.URL + "/p/2.png"}}

	out, err := newProcessor(cfg, srv, s).Process(context.Background(), "Tower", chapter5, nil)
	require.NoError(t, err)

	assert.Empty(t, out.Archive)
	require.Len(t, out.Pages, 2)
	for _, page := range out.Pages {
		assert.FileExists(t, page)
	}
}

func TestProcessFailedRestitchKeepsPreviousPages(t *testing.T) {
	srv := pageServer(t)
	cfg := testConfig(t)
	cfg.Archive = false

	good := &fakeScraper{images: []string{srv.URL + "/p/1.png", srv.URL + "/p/2.png"}}
	first, err := newProcessor(cfg, srv, good).Process(context.Background(), "Tower", chapter5, nil)
	require.NoError(t, err)
	require.Len(t, first.Pages, 1)
	before, err := os.ReadFile(first.Pages[0])
	require.NoError(t, err)

	broken := &fakeScraper{images: []string{srv.URL + "/p/bad.png"}}
	_, err = newProcessor(cfg, srv, broken).Process(context.Background(), "Tower", chapter5, nil)
	require.ErrorIs(t, err, ErrNoPages)
	require.ErrorIs(t, err, stitch.ErrDecode)

	after, err := os.ReadFile(first.Pages[0])
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoDirExists(t, filepath.Join(cfg.Output, "tower", "5.stitching"))
}

func TestProcessRestitchReplacesPreviousPages(t *testing.T) {
	srv := pageServer(t)
	cfg := testConfig(t)
	cfg.Archive = false

	three := &fakeScraper{images: []string{srv.URL + "/p/1.png", srv.URL + "/p/2.png", srv.URL + "/p/3.png"}}
	first, err := newProcessor(cfg, srv, three).Process(context.Background(), "Tower", chapter5, nil)
	require.NoError(t, err)
	require.Len(t, first.Pages, 2)

	one := &fakeScraper{images: []string{srv.URL + "/p/1.png"}}
	second, err := newProcessor(cfg, srv, one).Process(context.Background(), "Tower", chapter5, nil)
	require.NoError(t, err)

	dir := filepath.Join(cfg.Output, "tower", "5")
	assert.Equal(t, []string{filepath.Join(dir, "1.png")}, second.Pages)
	assert.Equal(t, second.Pages, second.Report.Written)
	assert.NoFileExists(t, filepath.Join(dir, "2.png"), "stale page from the earlier run")
}

type fakeProcessor struct {
	calls []string
	fail  map[string]bool
}

func (f *fakeProcessor) Process(_ context.Context, comic string, ch chapters.Chapter, _ Progress) (Outcome, error) {
	f.calls = append(f.calls, comic+"@"+ch.Label)
	if f.fail[comic] {
		return Outcome{}, errors.New("processing failed")
	}
	return Outcome{Chapter: ch.Label}, nil
}

func TestCheckerRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comics.yaml")
	store, err := tracker.Load(path)
	require.NoError(t, err)

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range []struct{ name, url, last string }{
		{"alpha", "https://a", "1"},
		{"beta", "https://b", "3"},
		{"gamma", "https://c", ""},
		{"delta", "https://d", "7"},
		{"omega", "https://broken", ""},
	} {
		require.NoError(t, store.Add(c.name, c.url, t0))
		if c.last != "" {
			require.NoError(t, store.MarkChecked(c.name, c.last, t0))
		}
	}

	scraper := &fakeScraper{chapters: map[string][]providers.Chapter{
		"https://a": {{NumMain: 1, Label: "1"}, {NumMain: 2, Label: "2"}},
		"https://b": {{NumMain: 3, Label: "3"}},
		"https://c": {{NumMain: 9, Label: "9"}},
		"https://d": {{NumMain: 8, Label: "8"}},
	}}
	proc := &fakeProcessor{fail: map[string]bool{"delta": true}}
	now := t0.Add(time.Hour)

	c := &Checker{
		Store:     store,
		Scraper:   scraper,
		Processor: proc,
		Log:       ui.NopLogger(),
		Now:       func() time.Time { return now },
	}

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.ElementsMatch(t, []string{"alpha@2", "gamma@9", "delta@8"}, proc.calls)

	byName := map[string]CheckResult{}
	for _, r := range results {
		byName[r.Comic] = r
	}
	assert.True(t, byName["alpha"].New)
	assert.False(t, byName["beta"].New)
	assert.Error(t, byName["delta"].Err)
	assert.Error(t, byName["omega"].Err)

	saved, err := tracker.Load(path)
	require.NoError(t, err)
	for name, want := range map[string]string{"alpha": "2", "beta": "3", "gamma": "9", "delta": "7", "omega": ""} {
		got, ok := saved.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got.LastKnownChapter, name)
		assert.True(t, now.Equal(got.LastChecked), name)
	}
}

func TestCheckerTagsLogsWithRunID(t *testing.T) {
	store, err := tracker.Load(filepath.Join(t.TempDir(), "comics.yaml"))
	require.NoError(t, err)
	require.NoError(t, store.Add("alpha", "https://a", time.Now()))

	core, logs := observer.New(zapcore.DebugLevel)
	c := &Checker{
		Store:     store,
		Scraper:   &fakeScraper{chapters: map[string][]providers.Chapter{"https://a": {{NumMain: 1, Label: "1"}}}},
		Processor: &fakeProcessor{},
		Log:       ui.FromZap(zap.New(core), true),
	}
	_, err = c.Run(context.Background())
	require.NoError(t, err)

	entries := logs.All()
	require.NotEmpty(t, entries)
	runID, ok := entries[0].ContextMap()["run"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(runID)
	require.NoError(t, err)

	for _, e := range entries {
		assert.Equal(t, runID, e.ContextMap()["run"], e.Message)
		assert.NotContains(t, e.Message, runID)
	}

	_, err = c.Run(context.Background())
	require.NoError(t, err)
	last := logs.All()[logs.Len()-1]
	assert.NotEqual(t, runID, last.ContextMap()["run"], "each pass gets its own id")
}

func TestCheckerCancelled(t *testing.T) {
	store, err := tracker.Load(filepath.Join(t.TempDir(), "comics.yaml"))
	require.NoError(t, err)
	require.NoError(t, store.Add("alpha", "https://a", time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Checker{Store: store, Scraper: &fakeScraper{}, Processor: &fakeProcessor{}, Log: ui.NopLogger()}
	_, err = c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWatchStopsOnCancel(t *testing.T) {
	store, err := tracker.Load(filepath.Join(t.TempDir(), "comics.yaml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	c := &Checker{Store: store, Scraper: &fakeScraper{}, Processor: &fakeProcessor{}, Log: ui.NopLogger()}

	err = c.Watch(ctx, time.Millisecond, func([]CheckResult, error) {
		runs++
		if runs == 3 {
			cancel()
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, runs)
}
