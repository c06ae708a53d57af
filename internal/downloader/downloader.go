package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// Progress receives page counts and downloaded bytes for one chapter.
type Progress interface {
	Update(done, total int, bytes int64)
}

type Options struct {
	Workers    int
	SkipBroken bool
	Attempts   int
	RetryDelay time.Duration
	Timeout    time.Duration
}

type Downloader struct {
	client *http.Client
	log    Logger
	opts   Options
}

func New(c *http.Client, log Logger, opts Options) *Downloader {
	if opts.Attempts < 1 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Downloader{client: c, log: log, opts: opts}
}

// Result lists downloaded files in page order. Pages that failed or were
// skipped leave no entry.
type Result struct {
	Files  []string
	Bytes  int64
	Failed int
}

var ErrBrokenPages = errors.New("some pages failed to download")

// Download fetches urls into folder as 001.<ext>, 002.<ext>, ... . Animated
// GIFs are skipped. Without SkipBroken any failed page fails the chapter.
func (d *Downloader) Download(ctx context.Context, urls []string, folder, referer string, p Progress) (Result, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return Result{}, err
	}

	total := len(urls)
	paths := make([]string, total)

	var (
		mu    sync.Mutex
		done  int
		bytes int64
		errs  []error
	)
	report := func() {
		if p != nil {
			p.Update(done, total, bytes)
		}
	}
	report()

	poolErr := runPool(ctx, total, d.opts.Workers, func(i int) {
		u := urls[i]
		ext := pageExt(u)

		var err error
		if ext == ".gif" {
			d.debugf("skipping animated page %s", u)
		} else {
			dst := filepath.Join(folder, fmt.Sprintf("%03d%s", i+1, ext))
			var last int64
			err = d.fetchWithRetry(ctx, u, dst, referer, func(n int64) {
				mu.Lock()
				bytes += n - last
				last = n
				report()
				mu.Unlock()
			})
			if err == nil {
				paths[i] = dst
			}
		}

		mu.Lock()
		done++
		if err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", i+1, err))
			if d.log != nil {
				d.log.Warnf("page %d (%s): %v", i+1, u, err)
			}
		}
		report()
		mu.Unlock()
	})

	res := Result{Bytes: bytes, Failed: len(errs)}
	for _, f := range paths {
		if f != "" {
			res.Files = append(res.Files, f)
		}
	}

	if poolErr != nil {
		return res, poolErr
	}
	if len(errs) > 0 && !d.opts.SkipBroken {
		return res, fmt.Errorf("%w: %d/%d (use --skip-broken to continue): %w",
			ErrBrokenPages, len(errs), total, errors.Join(errs...))
	}
	return res, nil
}

func (d *Downloader) debugf(format string, args ...any) {
	if d.log != nil {
		d.log.Debugf(format, args...)
	}
}

func pageExt(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || len(ext) > 5 {
		return ".jpg"
	}
	return ext
}

func (d *Downloader) fetchWithRetry(ctx context.Context, u, dst, referer string, progress func(int64)) error {
	var err error
	for attempt := 1; attempt <= d.opts.Attempts; attempt++ {
		if err = d.fetch(ctx, u, dst, referer, progress); err == nil {
			return nil
		}
		d.debugf("attempt %d for %s: %v", attempt, u, err)

		if attempt == d.opts.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * d.opts.RetryDelay):
		}
	}
	_ = os.Remove(dst)
	return err
}

func (d *Downloader) fetch(ctx context.Context, u, dst, referer string, progress func(int64)) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); !strings.HasPrefix(mt, "image/") && mt != "application/octet-stream" {
			return fmt.Errorf("unexpected MIME: %s", ct)
		}
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = copyWithProgress(f, resp.Body, progress)
	return err
}

func copyWithProgress(dst io.Writer, src io.Reader, progress func(done int64)) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64
	for {
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				total += int64(nw)
				if progress != nil {
					progress(total)
				}
			}
			if ew != nil {
				return total, ew
			}
			if nr != nw {
				return total, io.ErrShortWrite
			}
		}
		if er == io.EOF {
			return total, nil
		}
		if er != nil {
			return total, er
		}
	}
}
