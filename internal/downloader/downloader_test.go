package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	last    [2]int
	maxByte int64
}

func (r *recorder) Update(done, total int, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = [2]int{done, total}
	if bytes > r.maxByte {
		r.maxByte = bytes
	}
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://reader.example/ch1", r.Header.Get("Referer"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png:" + r.URL.Path))
	})
	mux.HandleFunc("/html/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/missing/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDownloader(srv *httptest.Server, skip bool) *Downloader {
	return New(srv.Client(), nil, Options{
		Workers:    4,
		SkipBroken: skip,
		Attempts:   2,
		RetryDelay: time.Millisecond,
	})
}

func TestDownloadKeepsPageOrder(t *testing.T) {
	srv := imageServer(t)
	dir := filepath.Join(t.TempDir(), "ch1_tmp")

	var urls []string
	for _, n := range []string{"a.png", "b.webp?sig=1", "c", "anim.gif", "d.jpeg"} {
		urls = append(urls, srv.URL+"/img/"+n)
	}

	rec := &recorder{}
	res, err := newTestDownloader(srv, false).Download(context.Background(), urls, dir, "https://reader.example/ch1", rec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "001.png"),
		filepath.Join(dir, "002.webp"),
		filepath.Join(dir, "003.jpg"),
		filepath.Join(dir, "005.jpeg"),
	}, res.Files)
	assert.Zero(t, res.Failed)
	assert.Positive(t, res.Bytes)
	assert.Equal(t, [2]int{5, 5}, rec.last)
	assert.Equal(t, res.Bytes, rec.maxByte)

	raw, err := os.ReadFile(res.Files[0])
	require.NoError(t, err)
	assert.Equal(t, "png:/img/a.png", string(raw))
}

func TestDownloadBrokenPages(t *testing.T) {
	srv := imageServer(t)
	urls := []string{
		srv.URL + "/img/1.png",
		srv.URL + "/missing/2.png",
		srv.URL + "/html/3.png",
	}

	res, err := newTestDownloader(srv, false).Download(context.Background(), urls, t.TempDir(), "https://reader.example/ch1", nil)
	require.ErrorIs(t, err, ErrBrokenPages)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, res.Files, 1)

	dir := t.TempDir()
	res, err = newTestDownloader(srv, true).Download(context.Background(), urls, dir, "https://reader.example/ch1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "001.png")}, res.Files)

	_, statErr := os.Stat(filepath.Join(dir, "003.png"))
	assert.True(t, os.IsNotExist(statErr), "rejected pages leave no file")
}

func TestDownloadCancelled(t *testing.T) {
	srv := imageServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestDownloader(srv, true).Download(ctx, []string{srv.URL + "/img/1.png"}, t.TempDir(), "", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPageExt(t *testing.T) {
	assert.Equal(t, ".png", pageExt("https://x/a/B.PNG"))
	assert.Equal(t, ".webp", pageExt("https://x/a/b.webp?w=800"))
	assert.Equal(t, ".jpg", pageExt("https://x/a/noext"))
}

func TestRunPoolVisitsAll(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]bool{}
	require.NoError(t, runPool(context.Background(), 20, 3, func(i int) {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
	}))
	assert.Len(t, seen, 20)
}
