package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/brogergvhs/chaptrix/internal/config"
	"github.com/brogergvhs/chaptrix/internal/stitch"
	"github.com/brogergvhs/chaptrix/internal/ui"

	"github.com/spf13/cobra"
)

var (
	flagStitchWidth     int
	flagStitchMaxHeight int
	flagStitchQuality   int
	flagStitchFormat    string
	flagStitchResampler string
	flagStitchMmapMB    int
)

var stitchCmd = &cobra.Command{
	Use:   "stitch <input-dir> <output-template>",
	Short: "Stitch the images of a folder into long-strip pages",
	Long: `Stitch every png/jpg/webp file in <input-dir>, in numeric file name order,
into pages no taller than --max-height. Pages are written next to
<output-template> as 1.<ext>, 2.<ext>, ...; the extension of the template
selects the format unless --format is given.`,
	Example: "  chaptrix stitch downloads/tower/12_tmp processed/tower/12/12.jpg --max-height 8000",
	Args:    cobra.ExactArgs(2),
	RunE:    runStitch,
}

func init() {
	f := stitchCmd.Flags()
	f.IntVar(&flagStitchWidth, "width", 0, "output width in px (0 = widest input)")
	f.IntVar(&flagStitchMaxHeight, "max-height", stitch.DefaultMaxHeight, "maximum page height in px (0 = single page)")
	f.IntVar(&flagStitchQuality, "quality", stitch.DefaultQuality, "JPEG/WebP quality (1-100)")
	f.StringVar(&flagStitchFormat, "format", "", "output format: jpeg, png or webp")
	f.StringVar(&flagStitchResampler, "resampler", stitch.DefaultResampler, "nearest, approx-bilinear, bilinear or catmullrom")
	f.IntVar(&flagStitchMmapMB, "mmap-threshold", 0, "back canvases larger than this many MiB with a temp file (0 = never)")

	rootCmd.AddCommand(stitchCmd)
}

func runStitch(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.LoadMerged(config.Options{IgnoreConfig: flagIgnoreConfig, Debug: flagDebug})
	if err != nil {
		return err
	}

	log := ui.NewLogger(cfg.Debug)
	defer log.Sync()

	sc := cfg.Stitch
	flags := cmd.Flags()
	if flags.Changed("width") {
		sc.TargetWidth = flagStitchWidth
	}
	if flags.Changed("max-height") {
		sc.MaxHeight = flagStitchMaxHeight
	}
	if flags.Changed("quality") {
		sc.Quality = flagStitchQuality
	}
	if flags.Changed("resampler") {
		sc.Resampler = flagStitchResampler
	}
	if flags.Changed("mmap-threshold") {
		sc.MmapThresholdMB = flagStitchMmapMB
	}

	opts := sc.Options()
	if filepath.Ext(args[1]) != "" {
		opts.Format = ""
	}
	if flagStitchFormat != "" {
		f, ok := stitch.ParseFormat(flagStitchFormat)
		if !ok {
			return fmt.Errorf("unknown format %q", flagStitchFormat)
		}
		opts.Format = f
	}

	written, report := stitch.Folder(args[0], args[1], opts, log)
	for _, e := range report.Skipped {
		fmt.Printf("skipped: %v\n", e)
	}

	if len(written) == 0 {
		return errors.New("no pages written")
	}

	fmt.Printf("Stitched %d of %d image(s) into %d page(s):\n", report.Stitched, report.Inputs, len(written))
	for _, p := range written {
		fmt.Println("  ", p)
	}
	return nil
}
