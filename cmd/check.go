package cmd

import (
	"fmt"
	"time"

	"github.com/brogergvhs/chaptrix/internal/config"
	"github.com/brogergvhs/chaptrix/internal/ui"
	"github.com/brogergvhs/chaptrix/internal/workflow"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every tracked comic once and process new chapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(config.Options{})
		if err != nil {
			return err
		}
		defer a.log.Sync()
		a.printConfig()

		checker, done, err := a.checker(true)
		if err != nil {
			return err
		}

		start := time.Now()
		results, err := checker.Run(cmd.Context())
		done()
		printResults(results)
		a.summary(start)
		return err
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// checker builds a Checker over the tracked comics. With bars, the returned
// func waits for them to finish rendering.
func (a *app) checker(bars bool) (*workflow.Checker, func(), error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	c := &workflow.Checker{
		Store:     store,
		Scraper:   a.scraper,
		Processor: a.processor(),
		Log:       a.log,
	}
	if !bars {
		return c, func() {}, nil
	}

	pm := ui.NewProgressManager(false)
	c.Progress = func(label string) workflow.Progress {
		return pm.Register(label)
	}
	return c, pm.Close, nil
}

func printResults(results []workflow.CheckResult) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("  %-24s error: %v\n", r.Comic, r.Err)
		case r.New:
			fmt.Printf("  %-24s new chapter %s -> %s\n", r.Comic, r.Latest, r.Outcome.Archive)
		default:
			fmt.Printf("  %-24s up to date (%s)\n", r.Comic, orDash(r.Latest))
		}
	}
}
