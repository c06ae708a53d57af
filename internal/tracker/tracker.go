// Package tracker keeps the list of followed comics and the last chapter
// seen for each of them in a small YAML file.
package tracker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brogergvhs/chaptrix/internal/providers"

	"gopkg.in/yaml.v3"
)

var (
	ErrExists   = errors.New("comic already tracked")
	ErrNotFound = errors.New("comic not tracked")
)

type Comic struct {
	Name             string    `yaml:"name"`
	URL              string    `yaml:"url"`
	LastKnownChapter string    `yaml:"last_known_chapter,omitempty"`
	LastChecked      time.Time `yaml:"last_checked,omitempty"`
	Added            time.Time `yaml:"added"`
}

type file struct {
	Comics []Comic `yaml:"comics"`
}

// Store is safe for concurrent use. Mutations are persisted on Save.
type Store struct {
	mu     sync.Mutex
	path   string
	comics map[string]Comic
}

// Load reads path; a missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{path: path, comics: map[string]Comic{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, c := range f.Comics {
		s.comics[key(c.Name)] = c
	}
	return s, nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// List returns comics sorted by name.
func (s *Store) List() []Comic {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Comic, 0, len(s.comics))
	for _, c := range s.comics {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].Name) < key(out[j].Name) })
	return out
}

func (s *Store) Get(name string) (Comic, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comics[key(name)]
	return c, ok
}

func (s *Store) Add(name, url string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(url) == "" {
		return errors.New("name and url are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comics[key(name)]; ok {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	s.comics[key(name)] = Comic{Name: name, URL: strings.TrimSpace(url), Added: now}
	return nil
}

func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comics[key(name)]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.comics, key(name))
	return nil
}

// MarkChecked records a check. An empty label keeps the previous chapter.
func (s *Store) MarkChecked(name, label string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comics[key(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if label != "" {
		c.LastKnownChapter = label
	}
	c.LastChecked = at
	s.comics[key(name)] = c
	return nil
}

// Save writes the store atomically.
func (s *Store) Save() error {
	f := file{Comics: s.List()}

	raw, err := yaml.Marshal(f)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Latest is the highest chapter of list, which scrapers return ascending.
func Latest(list []providers.Chapter) (providers.Chapter, bool) {
	if len(list) == 0 {
		return providers.Chapter{}, false
	}
	best := list[0]
	for _, c := range list[1:] {
		if best.Less(c) {
			best = c
		}
	}
	return best, true
}

// HasNew reports whether latest differs from what was last seen.
func HasNew(c Comic, latest providers.Chapter) bool {
	return latest.Label != "" && latest.Label != c.LastKnownChapter
}
