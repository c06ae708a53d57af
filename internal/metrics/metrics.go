// Package metrics exposes Prometheus collectors for chapter processing and
// the HTTP surface that serves them while watching.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	chaptersTotal     *prometheus.CounterVec
	pagesDownloaded   prometheus.Counter
	stitchedPages     prometheus.Counter
	skippedImages     *prometheus.CounterVec
	newChaptersTotal  *prometheus.CounterVec
	checkDuration     prometheus.Histogram
	lastCheckUnixTime prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		chaptersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaptrix_chapters_total",
				Help: "Chapters processed, labeled by status.",
			},
			[]string{"status"},
		)

		pagesDownloaded = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chaptrix_pages_downloaded_total",
				Help: "Source page images downloaded.",
			},
		)

		stitchedPages = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "chaptrix_stitched_pages_total",
				Help: "Stitched output pages written.",
			},
		)

		skippedImages = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaptrix_skipped_images_total",
				Help: "Images left out of stitched output, labeled by failure kind.",
			},
			[]string{"kind"},
		)

		newChaptersTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaptrix_new_chapters_total",
				Help: "New chapters detected, labeled by comic.",
			},
			[]string{"comic"},
		)

		checkDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chaptrix_check_duration_seconds",
				Help:    "Duration of one check pass over all tracked comics.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
			},
		)

		lastCheckUnixTime = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chaptrix_last_check_timestamp_seconds",
				Help: "Unix time the last check pass finished.",
			},
		)
	})
}

func ObserveChapter(status string) {
	chaptersTotal.WithLabelValues(status).Inc()
}

func AddDownloadedPages(n int) {
	if n > 0 {
		pagesDownloaded.Add(float64(n))
	}
}

func AddStitchedPages(n int) {
	if n > 0 {
		stitchedPages.Add(float64(n))
	}
}

func ObserveSkipped(kind string, n int) {
	if n > 0 {
		skippedImages.WithLabelValues(kind).Add(float64(n))
	}
}

func ObserveNewChapter(comic string) {
	newChaptersTotal.WithLabelValues(comic).Inc()
}

func ObserveCheck(d time.Duration, finished time.Time) {
	checkDuration.Observe(d.Seconds())
	lastCheckUnixTime.Set(float64(finished.Unix()))
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Router serves /metrics and /healthz.
func Router() http.Handler {
	Init()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", Handler())

	return r
}
