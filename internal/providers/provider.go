package providers

import "context"

// Chapter is one entry of a comic's chapter list. NumMain, SuffixType and
// SuffixNum order chapters like "12", "12.5" and "12-2"; Label is the short
// human form used in file names and the tracker.
type Chapter struct {
	URL        string
	Title      string
	NumMain    int
	SuffixType string
	SuffixNum  int
	Label      string
}

// Less orders chapters by number, then suffix.
func (c Chapter) Less(o Chapter) bool {
	if c.NumMain != o.NumMain {
		return c.NumMain < o.NumMain
	}
	if c.SuffixType != o.SuffixType {
		return c.SuffixType < o.SuffixType
	}
	return c.SuffixNum < o.SuffixNum
}

// Scraper discovers chapters of a comic and the page images of a chapter.
// GetChapters returns ascending order; GetImages returns page order.
type Scraper interface {
	GetChapters(ctx context.Context, url string) ([]Chapter, error)
	GetImages(ctx context.Context, chapterURL string) ([]string, error)
}
