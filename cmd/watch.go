package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/brogergvhs/chaptrix/internal/config"
	"github.com/brogergvhs/chaptrix/internal/metrics"
	"github.com/brogergvhs/chaptrix/internal/workflow"

	"github.com/spf13/cobra"
)

var (
	flagInterval    time.Duration
	flagMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check tracked comics periodically, serving /metrics and /healthz",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagInterval, "interval", 0, "time between checks (default: check_interval from config)")
	watchCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "listen address for metrics, empty string in config disables (default: metrics_addr from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(config.Options{})
	if err != nil {
		return err
	}
	defer a.log.Sync()
	a.printConfig()

	interval := a.cfg.CheckInterval
	if flagInterval > 0 {
		interval = flagInterval
	}
	addr := a.cfg.MetricsAddr
	if flagMetricsAddr != "" {
		addr = flagMetricsAddr
	}

	checker, _, err := a.checker(false)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           metrics.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.log.Infof("serving metrics on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Errorf("metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.log.Infof("watching tracked comics every %s", interval)
	err = checker.Watch(ctx, interval, func(results []workflow.CheckResult, err error) {
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Errorf("check failed: %v", err)
		}
		printResults(results)
		a.log.Infof("next check in %s", interval)
	})
	if errors.Is(err, context.Canceled) {
		a.log.Infof("stopping")
		return nil
	}
	return err
}
