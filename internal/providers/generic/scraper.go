package generic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/brogergvhs/chaptrix/internal/providers"
	"github.com/brogergvhs/chaptrix/internal/util"

	"github.com/PuerkitoBio/goquery"
)

var ErrNoImages = errors.New("no usable images found")

type Logger interface {
	Debugf(format string, args ...any)
}

type Scraper struct {
	client  *http.Client
	log     Logger
	allowed *regexp.Regexp
}

func NewScraper(c *http.Client, log Logger, allowExt []string) *Scraper {
	return &Scraper{
		client:  c,
		log:     log,
		allowed: extPattern(allowExt),
	}
}

var _ providers.Scraper = (*Scraper)(nil)

func (s *Scraper) debugf(format string, args ...any) {
	if s.log != nil {
		s.log.Debugf(format, args...)
	}
}

func (s *Scraper) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := util.DoWithRetry(s.client, req, 3, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: HTTP %d", target, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (s *Scraper) GetChapters(ctx context.Context, pageURL string) ([]providers.Chapter, error) {
	body, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	var out []providers.Chapter
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		text := strings.TrimSpace(a.Text())

		ch, ok := parseChapter(href, text)
		if !ok {
			return
		}

		ch.URL = resolve(pageURL, href)
		if seen[ch.URL] {
			return
		}
		seen[ch.URL] = true

		ch.Title = text
		if ch.Title == "" {
			ch.Title = "Chapter " + ch.Label
		}
		out = append(out, ch)
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })

	s.debugf("found %d chapters on %s", len(out), pageURL)
	return out, nil
}

var reNuxt = regexp.MustCompile(`window\.__NUXT__\s*=\s*(\{.*?});`)

func (s *Scraper) GetImages(ctx context.Context, chapterURL string) ([]string, error) {
	body, err := s.fetch(ctx, chapterURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", chapterURL, err)
	}

	col := newCollector(s.allowed)
	col.scanDocument(doc, chapterURL)
	s.debugf("DOM scan of %s: %d candidates", chapterURL, col.len())

	if m := reNuxt.FindSubmatch(body); len(m) > 1 {
		var raw map[string]any
		if json.Unmarshal(m[1], &raw) == nil {
			s.debugf("embedded SSR JSON found")
			col.scanJSON(raw, chapterURL)
		}
	}

	col.scanLooseURLs(string(body))

	final := col.finalize()
	if len(final) == 0 {
		return nil, ErrNoImages
	}

	s.debugf("%s: %d page images", chapterURL, len(final))
	return final, nil
}

type labelRule struct {
	re    *regexp.Regexp
	title bool
	build func(m []string) (main int, typ string, sub int, label string)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// dotted handles "12" and "12.5".
func dotted(num string) (int, string, int, string) {
	main, frac, ok := strings.Cut(num, ".")
	if !ok {
		return atoi(main), "", 0, strconv.Itoa(atoi(main))
	}
	return atoi(main), ".", atoi(frac), fmt.Sprintf("%d.%d", atoi(main), atoi(frac))
}

// labelRules are tried in order; URL rules first, then link text.
var labelRules = []labelRule{
	{
		re: regexp.MustCompile(`chapter[_\-]?0*([0-9]+)[_\-]?([0-9]+)?`),
		build: func(m []string) (int, string, int, string) {
			if m[2] != "" {
				return atoi(m[1]), "-", atoi(m[2]), fmt.Sprintf("%d-%d", atoi(m[1]), atoi(m[2]))
			}
			return atoi(m[1]), "", 0, strconv.Itoa(atoi(m[1]))
		},
	},
	{
		re: regexp.MustCompile(`vol[_\-]?(\d+)[/_\-]ch[_\-]?(\d+(?:\.\d+)?)`),
		build: func(m []string) (int, string, int, string) {
			return atoi(m[2]), ".", atoi(m[1]), fmt.Sprintf("%d.%s", atoi(m[1]), m[2])
		},
	},
	{
		re:    regexp.MustCompile(`(?:^|[/\-_])ch[_\-]?(\d+(?:\.\d+)?)`),
		build: func(m []string) (int, string, int, string) { return dotted(m[1]) },
	},
	{
		re:    regexp.MustCompile(`[/\-](\d+(?:\.\d+)?)(?:$|[/\-_])`),
		build: func(m []string) (int, string, int, string) { return dotted(m[1]) },
	},
	{
		re:    regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*[.\- ]`),
		title: true,
		build: func(m []string) (int, string, int, string) { return dotted(m[1]) },
	},
	{
		re:    regexp.MustCompile(`(?i)(?:chapter|ch)[_\-\s]*0*([0-9]+)(?:[_\-\s]*([.\-])[_\-\s]*([0-9]+))?`),
		title: true,
		build: func(m []string) (int, string, int, string) {
			if m[2] == "" {
				return atoi(m[1]), "", 0, strconv.Itoa(atoi(m[1]))
			}
			return atoi(m[1]), m[2], atoi(m[3]), fmt.Sprintf("%d%s%d", atoi(m[1]), m[2], atoi(m[3]))
		},
	},
}

var reLikelyChapter = regexp.MustCompile(`(?i)(?:^|[-_/])(?:ch|chapter)[-_]?\d+|vol[_\-]?\d+[/_\-]ch`)

func looksLikeChapter(href, text string) bool {
	h := strings.ToLower(href)
	if strings.Contains(h, "/u/") || strings.Contains(h, "batolists") {
		return false
	}
	if reLikelyChapter.MatchString(h) {
		return true
	}

	t := strings.ToLower(text)
	return strings.HasPrefix(t, "ch ") || strings.HasPrefix(t, "chapter ")
}

func parseChapter(href, text string) (providers.Chapter, bool) {
	if !looksLikeChapter(href, text) {
		return providers.Chapter{}, false
	}

	h := strings.ToLower(href)
	for _, r := range labelRules {
		subject := h
		if r.title {
			subject = text
		}

		m := r.re.FindStringSubmatch(subject)
		if m == nil {
			continue
		}

		main, typ, sub, label := r.build(m)
		return providers.Chapter{NumMain: main, SuffixType: typ, SuffixNum: sub, Label: label}, true
	}

	return providers.Chapter{}, false
}

func resolve(base, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return b.ResolveReference(u).String()
}
