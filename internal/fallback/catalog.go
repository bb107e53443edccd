// Package fallback serves hand-checked exercises when a generated one cannot
// be repaired. Entries are loaded once and never handed out by reference.
package fallback

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/cuentos-signos/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrNoEntry means the catalog has no exercise of the requested kind at any
// level.
var ErrNoEntry = errors.New("no fallback entry")

//go:embed catalog.yaml
var defaultCatalog []byte

type file struct {
	Entries []fileEntry `yaml:"entries"`
}

type fileEntry struct {
	Level    int            `yaml:"level"`
	Kind     models.Kind    `yaml:"kind"`
	Title    string         `yaml:"title"`
	Exercise map[string]any `yaml:"exercise"`
}

type Catalog struct {
	byKind map[models.Kind][]models.FallbackEntry // sorted by level
}

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which tests guard against.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded fallback catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the embedded one when path is
// empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fallback catalog: %w", err)
	}

	c := &Catalog{byKind: make(map[models.Kind][]models.FallbackEntry)}
	seen := make(map[string]bool)
	for i, fe := range f.Entries {
		if fe.Level < 1 {
			return nil, fmt.Errorf("fallback entry %d: invalid level %d", i, fe.Level)
		}
		if !models.ValidKinds[fe.Kind] {
			return nil, fmt.Errorf("fallback entry %d: unknown kind %q", i, fe.Kind)
		}
		key := fmt.Sprintf("%d/%s", fe.Level, fe.Kind)
		if seen[key] {
			return nil, fmt.Errorf("fallback entry %d: duplicate entry for level %d %s", i, fe.Level, fe.Kind)
		}
		seen[key] = true

		// Payload fields share their JSON names.
		raw, err := json.Marshal(fe.Exercise)
		if err != nil {
			return nil, fmt.Errorf("fallback entry %d: %w", i, err)
		}
		cand, err := models.DecodeCandidate(fe.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("fallback entry %d: %w", i, err)
		}
		cand.Title = fe.Title

		c.byKind[fe.Kind] = append(c.byKind[fe.Kind], models.FallbackEntry{
			Level:     fe.Level,
			Kind:      fe.Kind,
			Candidate: cand,
		})
	}
	for _, entries := range c.byKind {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Level < entries[j].Level })
	}
	return c, nil
}

// Lookup returns the entry for kind at level, or at the nearest level that
// has one. On a tie the lower level wins.
func (c *Catalog) Lookup(level int, kind models.Kind) (models.FallbackEntry, error) {
	entries := c.byKind[kind]
	if len(entries) == 0 {
		return models.FallbackEntry{}, fmt.Errorf("%s at level %d: %w", kind, level, ErrNoEntry)
	}

	best := entries[0]
	for _, e := range entries[1:] {
		// Ascending order: only a strictly closer level replaces best.
		if abs(e.Level-level) < abs(best.Level-level) {
			best = e
		}
	}
	best.Candidate = best.Candidate.Clone()
	return best, nil
}

// Select returns a fresh copy of the closest entry with its title adapted
// to the story.
func (c *Catalog) Select(level int, kind models.Kind, storyTitle string) (models.Candidate, error) {
	entry, err := c.Lookup(level, kind)
	if err != nil {
		return models.Candidate{}, err
	}
	cand := entry.Candidate
	cand.Title = AdaptTitle(cand.Title, storyTitle)
	return cand, nil
}

// AdaptTitle joins an entry title and a story title for display.
func AdaptTitle(entryTitle, storyTitle string) string {
	switch {
	case storyTitle == "":
		return entryTitle
	case entryTitle == "":
		return storyTitle
	}
	return entryTitle + " · " + storyTitle
}

// Entries returns a copy of every entry, ordered by kind then level.
func (c *Catalog) Entries() []models.FallbackEntry {
	var out []models.FallbackEntry
	for _, kind := range models.AllKinds {
		for _, e := range c.byKind[kind] {
			e.Candidate = e.Candidate.Clone()
			out = append(out, e)
		}
	}
	return out
}

// Missing lists the kinds with no entry at any level.
func (c *Catalog) Missing() []models.Kind {
	var out []models.Kind
	for _, kind := range models.AllKinds {
		if len(c.byKind[kind]) == 0 {
			out = append(out, kind)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
