package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brogergvhs/chaptrix/internal/config"
	"github.com/brogergvhs/chaptrix/internal/downloader"
	"github.com/brogergvhs/chaptrix/internal/providers/generic"
	"github.com/brogergvhs/chaptrix/internal/tracker"
	"github.com/brogergvhs/chaptrix/internal/ui"
	"github.com/brogergvhs/chaptrix/internal/util"
	"github.com/brogergvhs/chaptrix/internal/workflow"
)

// app bundles what the network facing commands share.
type app struct {
	cfg     *config.Config
	source  string
	log     *ui.Logger
	client  *http.Client
	scraper *generic.Scraper
	stats   *ui.Stats
}

func newApp(opts config.Options) (*app, error) {
	opts.IgnoreConfig = flagIgnoreConfig
	opts.Debug = opts.Debug || flagDebug

	cfg, source, err := config.LoadMerged(opts)
	if err != nil {
		return nil, err
	}

	log := ui.NewLogger(cfg.Debug)

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          30 * time.Second,
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      log,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		source:  source,
		log:     log,
		client:  client,
		scraper: generic.NewScraper(client, log, cfg.AllowExt),
		stats:   &ui.Stats{},
	}, nil
}

func (a *app) processor() *workflow.Processor {
	dl := downloader.New(a.client, a.log, downloader.Options{
		Workers:    a.cfg.ImageWorkers,
		SkipBroken: a.cfg.SkipBroken,
	})
	return workflow.NewProcessor(a.cfg, a.scraper, dl, a.log, a.stats)
}

func (a *app) printConfig() {
	fmt.Printf("Config file: %s\n", a.source)
	if a.cfg.Debug {
		a.cfg.Print()
	}
	fmt.Println()
}

func (a *app) summary(start time.Time) {
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("Chapters: %d (failed %d)\n", a.stats.TotalChapters.Load(), a.stats.Failed.Load())
	fmt.Printf("Images:   %d\n", a.stats.TotalImages.Load())
	fmt.Printf("Pages:    %d stitched, %d skipped\n", a.stats.StitchedPages.Load(), a.stats.SkippedImages.Load())
	elapsed := time.Since(start)
	bytes := a.stats.TotalBytes.Load()
	fmt.Printf("Data:     %s (%s)\n", util.Human(bytes), util.Rate(bytes, elapsed))
	fmt.Printf("Time:     %s\n", elapsed.Round(time.Second))
}

func openStore() (*tracker.Store, error) {
	return tracker.Load(config.ComicsFile())
}

func splitExt(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	})
}
