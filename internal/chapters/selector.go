package chapters

import (
	"strconv"
	"strings"
)

// Filter selects chapters by label or 1-based position, a "start-end"
// range, or a comma separated list of positions. No selector keeps all.
func Filter(all []Chapter, chapter, rng, list string) []Chapter {
	switch {
	case chapter != "":
		if byLabel := ByLabel(all, chapter); len(byLabel) > 0 {
			return byLabel
		}
		if c, ok := at(all, chapter); ok {
			return []Chapter{c}
		}
		return []Chapter{}
	case rng != "":
		return Range(all, rng)
	case list != "":
		return List(all, list)
	}
	return all
}

func ByLabel(all []Chapter, label string) []Chapter {
	var out []Chapter
	for _, ch := range all {
		if ch.Label == label {
			out = append(out, ch)
		}
	}
	return out
}

func Range(all []Chapter, rng string) []Chapter {
	from, to, ok := strings.Cut(rng, "-")
	if !ok {
		return nil
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(from))
	end, err2 := strconv.Atoi(strings.TrimSpace(to))
	if err1 != nil || err2 != nil || start <= 0 || start > end || end > len(all) {
		return nil
	}
	return all[start-1 : end]
}

func List(all []Chapter, list string) []Chapter {
	out := []Chapter{}
	for n := range strings.SplitSeq(list, ",") {
		if c, ok := at(all, n); ok {
			out = append(out, c)
		}
	}
	return out
}

func at(all []Chapter, pos string) (Chapter, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(pos))
	if err != nil || idx <= 0 || idx > len(all) {
		return Chapter{}, false
	}
	return all[idx-1], true
}
