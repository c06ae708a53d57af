package chapters

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/brogergvhs/chaptrix/internal/providers"
	"github.com/brogergvhs/chaptrix/internal/util"
)

type Chapter struct {
	providers.Chapter
}

func Wrap(list []providers.Chapter) []Chapter {
	out := make([]Chapter, len(list))
	for i, c := range list {
		out[i] = Chapter{c}
	}
	return out
}

var (
	separators   = strings.NewReplacer("•", "_", "-", "_", "—", "_", "–", "_", "/", "_", "\\", "_", ".", "_", " ", "_", "(", "", ")", "")
	reUnderscore = regexp.MustCompile(`_+`)
)

// SafeName lowercases s and reduces it to letters, digits and single
// underscores so it can be used as a path component.
func SafeName(s string) string {
	s = separators.Replace(strings.ToLower(s))

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, s)

	return strings.Trim(reUnderscore.ReplaceAllString(s, "_"), "_")
}

// BaseName is "<label>" or "<label>_<title>" when the title adds something.
func (c Chapter) BaseName() string {
	lbl := SafeName(c.Label)
	title := SafeName(c.Title)

	if title != "" && title != lbl && title != "chapter_"+lbl {
		return lbl + "_" + title
	}
	if lbl == "" {
		return "chapter"
	}
	return lbl
}

// DownloadDir is where raw pages of the chapter are kept while it is
// processed.
func (c Chapter) DownloadDir(root, comic string) string {
	return filepath.Join(root, SafeName(comic), c.BaseName()+util.TempSuffix)
}

// StitchDir holds the stitched pages of the chapter.
func (c Chapter) StitchDir(root, comic string) string {
	return filepath.Join(root, SafeName(comic), c.BaseName())
}

func (c Chapter) CBZPath(root, comic string) string {
	return filepath.Join(root, SafeName(comic), c.BaseName()+".cbz")
}
