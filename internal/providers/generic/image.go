package generic

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSize          = regexp.MustCompile(`[-_](\d{2,5})x(\d{2,5})`)
	reBackgroundURL = regexp.MustCompile(`url\(["']?([^"')]+)["']?\)`)
	reLooseURL      = regexp.MustCompile(`https?://[^\s"'<>]+`)
	nonPageWords    = []string{"logo", "cover", "profile", "avatar", "banner"}
)

// extPattern matches URLs ending in one of exts. No extensions means
// nothing matches.
func extPattern(exts []string) *regexp.Regexp {
	var clean []string
	for _, e := range exts {
		e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), ".")
		if e != "" {
			clean = append(clean, regexp.QuoteMeta(e))
		}
	}
	if len(clean) == 0 {
		return regexp.MustCompile(`$^x`)
	}
	return regexp.MustCompile(`(?i)\.(` + strings.Join(clean, "|") + `)$`)
}

// candidate is one discovered image URL. index comes from a data-index
// attribute (-1 when absent); order is discovery order.
type candidate struct {
	url   string
	index int
	order int
}

type collector struct {
	allowed *regexp.Regexp
	items   []candidate
	seen    map[string]bool
}

func newCollector(allowed *regexp.Regexp) *collector {
	return &collector{allowed: allowed, seen: map[string]bool{}}
}

func (c *collector) len() int { return len(c.items) }

func (c *collector) add(raw string, index int) {
	lu := strings.ToLower(raw)
	if raw == "" || strings.HasPrefix(lu, "javascript:") || strings.HasPrefix(lu, "data:") {
		return
	}

	p := lu
	if u, err := url.Parse(lu); err == nil {
		p = u.Path
	}
	if !c.allowed.MatchString(p) {
		return
	}
	for _, w := range nonPageWords {
		if strings.Contains(lu, w) {
			return
		}
	}

	if c.seen[raw] {
		return
	}
	c.seen[raw] = true
	c.items = append(c.items, candidate{url: raw, index: index, order: len(c.items)})
}

func (c *collector) addSrcset(base, srcset string, index int) {
	for part := range strings.SplitSeq(srcset, ",") {
		if f := strings.Fields(part); len(f) > 0 {
			c.add(resolve(base, f[0]), index)
		}
	}
}

func pageIndex(sel *goquery.Selection) int {
	v, ok := sel.Attr("data-index")
	if !ok {
		v, ok = sel.ParentsFiltered("[data-index]").First().Attr("data-index")
	}
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return -1
	}
	return n
}

func (c *collector) scanDocument(doc *goquery.Document, base string) {
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		idx := pageIndex(img)
		if ss, ok := img.Attr("srcset"); ok {
			c.addSrcset(base, ss, idx)
		}
		for _, k := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
			if v, ok := img.Attr(k); ok && strings.TrimSpace(v) != "" {
				c.add(resolve(base, strings.TrimSpace(v)), idx)
			}
		}
	})

	doc.Find("source[srcset]").Each(func(_ int, src *goquery.Selection) {
		ss, _ := src.Attr("srcset")
		c.addSrcset(base, ss, pageIndex(src))
	})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") ||
			strings.HasPrefix(href, "/") || strings.HasPrefix(href, "./") {
			c.add(resolve(base, href), pageIndex(a))
		}
	})

	doc.Find("[style]").Each(func(_ int, el *goquery.Selection) {
		style := el.AttrOr("style", "")
		if !strings.Contains(strings.ToLower(style), "background-image") {
			return
		}
		idx := pageIndex(el)
		for _, m := range reBackgroundURL.FindAllStringSubmatch(style, -1) {
			c.add(resolve(base, strings.TrimSpace(m[1])), idx)
		}
	})
}

// scanJSON walks decoded SSR state: absolute URLs are taken directly,
// embedded HTML fragments are scanned like the page itself.
func (c *collector) scanJSON(v any, base string) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		ls := strings.ToLower(s)
		if strings.HasPrefix(ls, "http://") || strings.HasPrefix(ls, "https://") {
			c.add(s, -1)
			return
		}
		if strings.Contains(s, "<img") || strings.Contains(s, "<source") {
			if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
				c.scanDocument(doc, base)
			}
		}
	case []any:
		for _, x := range t {
			c.scanJSON(x, base)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			c.scanJSON(t[k], base)
		}
	}
}

func (c *collector) scanLooseURLs(body string) {
	for _, u := range reLooseURL.FindAllString(body, -1) {
		c.add(u, -1)
	}
}

// sizeKey strips a "-800x1200" style suffix so resized variants of one
// image share a key.
func sizeKey(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Host + u.Path
	}
	ext := path.Ext(p)
	stem := strings.TrimRight(reSize.ReplaceAllString(strings.TrimSuffix(p, ext), ""), "-_")
	return stem + ext
}

func area(raw string) int {
	m := reSize.FindAllStringSubmatch(raw, -1)
	if len(m) == 0 {
		return 0
	}
	last := m[len(m)-1]
	w, _ := strconv.Atoi(last[1])
	h, _ := strconv.Atoi(last[2])
	return w * h
}

// finalize keeps one URL per image: the unsized original if seen,
// otherwise the largest sized variant. Pages are ordered by data-index when
// known, then by discovery order.
func (c *collector) finalize() []string {
	groups := map[string][]candidate{}
	var keys []string
	for _, it := range c.items {
		k := sizeKey(it.url)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], it)
	}

	picked := make([]candidate, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		best := g[0]
		for _, it := range g[1:] {
			if area(best.url) > 0 && (area(it.url) == 0 || area(it.url) > area(best.url)) {
				best = it
			}
		}

		index := -1
		for _, it := range g {
			if it.index >= 0 && (index < 0 || it.index < index) {
				index = it.index
			}
		}
		picked = append(picked, candidate{url: best.url, index: index, order: g[0].order})
	}

	sort.SliceStable(picked, func(i, j int) bool {
		a, b := picked[i], picked[j]
		switch {
		case a.index >= 0 && b.index >= 0 && a.index != b.index:
			return a.index < b.index
		case a.index >= 0 && b.index < 0:
			return true
		case a.index < 0 && b.index >= 0:
			return false
		}
		return a.order < b.order
	})

	out := make([]string, len(picked))
	for i, p := range picked {
		out[i] = p.url
	}
	return out
}
