package stitch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// Folder stitches every image file in inputDir and saves the result next to
// template (see Save). It returns the written paths in page order; nil means
// nothing could be produced. Unreadable files are logged and skipped.
func Folder(inputDir, template string, opts Options, log Logger) ([]string, *Report) {
	log = orNop(log)

	names, err := ListImages(inputDir)
	if err != nil {
		log.Errorf("stitching folder %s: %v", inputDir, err)
		return nil, &Report{Skipped: []*EntryError{newEntryError(KindEmptyInput, -1, inputDir, err)}}
	}
	if len(names) == 0 {
		log.Errorf("no image files found in %s", inputDir)
		return nil, &Report{Skipped: []*EntryError{newEntryError(KindEmptyInput, -1, inputDir, ErrEmptyInput)}}
	}

	log.Infof("found %d images to stitch in %s", len(names), inputDir)

	sources := make([]Source, 0, len(names))
	var unreadable []*EntryError

	for i, name := range names {
		img, err := DecodeFile(filepath.Join(inputDir, name))
		if err != nil {
			log.Errorf("loading image %s: %v", name, err)
			unreadable = append(unreadable, newEntryError(KindDecodeFailure, i, name, err))
			continue
		}

		sources = append(sources, Source{Name: name, Image: img})
	}

	opts.Format, _ = outputFormat(template, opts.Format)
	pages, report := Stitch(sources, opts, log)

	report.Inputs = len(names)
	report.Skipped = append(unreadable, report.Skipped...)

	written, failed := Save(pages, template, opts, log)
	report.add(failed...)
	report.Written = written

	return written, report
}

// ListImages returns the image file names in dir, ordered by SortNames.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input folder: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}

	SortNames(names)
	return names, nil
}

// SortNames orders file names by the number formed from all digits in each
// name ("ch1_p10" -> 110), ties broken by name. If any name has no digits at
// all the whole list is sorted lexicographically instead.
func SortNames(names []string) {
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = digitKey(n)
		if keys[i] == "" {
			sort.Strings(names)
			return
		}
	}

	idx := make([]int, len(names))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		if c := compareDigits(keys[idx[a]], keys[idx[b]]); c != 0 {
			return c < 0
		}
		return names[idx[a]] < names[idx[b]]
	})

	sorted := make([]string, len(names))
	for i, j := range idx {
		sorted[i] = names[j]
	}
	copy(names, sorted)
}

func digitKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// compareDigits compares two digit strings numerically without parsing them,
// so arbitrarily long runs cannot overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}

	return strings.Compare(a, b)
}
