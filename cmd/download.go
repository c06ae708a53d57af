package cmd

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brogergvhs/chaptrix/internal/chapters"
	"github.com/brogergvhs/chaptrix/internal/config"
	"github.com/brogergvhs/chaptrix/internal/providers/generic"
	"github.com/brogergvhs/chaptrix/internal/ui"
	"github.com/brogergvhs/chaptrix/internal/util"

	"github.com/spf13/cobra"
)

var (
	// selection
	flagURL      string
	flagName     string
	flagChapter  string
	flagRange    string
	flagList     string
	flagAllowExt string

	// runtime
	flagOutput         string
	flagDownloadPath   string
	flagImageWorkers   int
	flagChapterWorkers int
	flagKeepFolders    bool
	flagNoStitch       bool
	flagDryRun         bool
	flagSkipBroken     bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
	flagCloudflare bool
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download chapters, stitch them and produce CBZ files. Uses the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	f := downloadCmd.Flags()

	f.StringVar(&flagURL, "url", "", "comic series page URL")
	f.StringVar(&flagName, "name", "", "comic name used for output folders (default: tracked name or \"comic\")")
	f.StringVar(&flagChapter, "chapter", "", "single chapter by label or index (e.g. 28.5 or 5)")
	f.StringVar(&flagRange, "range", "", "range of chapters by index (e.g. 5-12)")
	f.StringVar(&flagList, "list", "", "specific chapter indices (e.g. 1,3,5)")
	f.StringVar(&flagAllowExt, "allow-ext", "", "allowed image extensions (e.g. \"webp|jpg|png\")")

	f.StringVar(&flagOutput, "output", "", "output folder for stitched pages and CBZ files")
	f.StringVar(&flagDownloadPath, "download-path", "", "folder for raw page downloads")
	f.IntVar(&flagImageWorkers, "image-workers", 5, "parallel image downloads per chapter")
	f.IntVar(&flagChapterWorkers, "chapter-workers", 2, "parallel chapters")
	f.BoolVar(&flagKeepFolders, "keep-folders", false, "keep raw page folders")
	f.BoolVar(&flagNoStitch, "no-stitch", false, "archive the raw pages without stitching")
	f.BoolVar(&flagDryRun, "dry-run", false, "list the selected chapters without downloading")
	f.BoolVar(&flagSkipBroken, "skip-broken", false, "skip failed images instead of failing the whole chapter")

	f.StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	f.StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	f.StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
	f.BoolVar(&flagCloudflare, "cloudflare-bypass", false, "use a browser-like TLS setup for Cloudflare protected sites")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	a, err := newApp(config.Options{
		Output:           flagOutput,
		DownloadPath:     flagDownloadPath,
		KeepFolders:      flagKeepFolders,
		NoStitch:         flagNoStitch,
		DefaultURL:       flagURL,
		DefaultRange:     flagRange,
		DefaultList:      flagList,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
		CloudflareBypass: flagCloudflare,
		SkipBroken:       flagSkipBroken,
	})
	if err != nil {
		return err
	}
	defer a.log.Sync()

	cfg := a.cfg
	if cmd.Flags().Changed("image-workers") {
		cfg.ImageWorkers = flagImageWorkers
	}
	if cmd.Flags().Changed("chapter-workers") {
		cfg.ChapterWorkers = flagChapterWorkers
	}
	if flagAllowExt != "" {
		cfg.AllowExt = splitExt(flagAllowExt)
		a.scraper = generic.NewScraper(a.client, a.log, cfg.AllowExt)
	}
	a.printConfig()

	if cfg.DefaultURL == "" {
		return errors.New("missing --url and no default_url in config")
	}

	ctx := cmd.Context()

	found, err := a.scraper.GetChapters(ctx, cfg.DefaultURL)
	if err != nil {
		return err
	}
	all := chapters.Wrap(found)
	fmt.Printf("Found %d chapters on the site.\n\n", len(all))

	selected := chapters.Filter(all, flagChapter, cfg.DefaultRange, cfg.DefaultList)
	if len(selected) == 0 {
		return errors.New("no chapters selected")
	}

	if flagDryRun {
		fmt.Printf("Dry-run: %d chapters selected.\n\n", len(selected))
		for i, ch := range selected {
			fmt.Printf("%3d) %s  [%s]\n    %s\n", i+1, ch.Title, ch.Label, ch.URL)
		}
		return nil
	}

	name := comicName(cfg.DefaultURL)
	for _, d := range []string{cfg.Output, cfg.DownloadPath} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("cannot create folder %s: %w", d, err)
		}
	}

	proc := a.processor()
	pm := ui.NewProgressManager(false)
	start := time.Now()

	sem := make(chan struct{}, max(1, cfg.ChapterWorkers))
	var wg sync.WaitGroup

	for _, ch := range selected {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			h := pm.Register("Ch." + ch.Label)
			if _, err := proc.Process(ctx, name, ch, h); err != nil {
				a.log.Errorf("%v", err)
			}
		}()
	}
	wg.Wait()
	pm.Close()

	if ctx.Err() != nil {
		for _, p := range util.CleanupUnfinishedTempFolders(cfg.DownloadPath) {
			a.log.Debugf("removed unfinished folder %s", p)
		}
		util.RemoveIfEmpty(cfg.DownloadPath)
		return ctx.Err()
	}

	a.summary(start)
	if a.stats.Failed.Load() > 0 {
		return fmt.Errorf("%d chapter(s) failed", a.stats.Failed.Load())
	}
	return nil
}

// comicName prefers --name, then the tracked name for url, then "comic".
func comicName(url string) string {
	if flagName != "" {
		return flagName
	}
	if store, err := openStore(); err == nil {
		for _, c := range store.List() {
			if c.URL == url {
				return c.Name
			}
		}
	}
	return "comic"
}
