package catalog

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader reads seed files and merges them in order: entries of a later file
// replace entries of an earlier one with the same ID.
type Loader struct {
	paths []string

	mu    sync.RWMutex
	cache *Seed
}

// NewLoader creates a loader for the given seed files.
func NewLoader(paths ...string) *Loader {
	return &Loader{paths: paths}
}

// Paths returns the seed files this loader reads.
func (l *Loader) Paths() []string { return l.paths }

// Load reads, merges and validates the seed files. The merged result is cached
// until Invalidate is called.
func (l *Loader) Load() (*Seed, error) {
	l.mu.RLock()
	if l.cache != nil {
		s := l.cache
		l.mu.RUnlock()
		return s, nil
	}
	l.mu.RUnlock()

	merged := &Seed{}
	for _, p := range l.paths {
		s, err := readYAML(p)
		if err != nil {
			return nil, fmt.Errorf("read seed %s: %w", p, err)
		}
		merged = mergeSeed(merged, s)
	}
	if err := Validate(merged); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache = merged
	l.mu.Unlock()
	return merged, nil
}

// Invalidate clears the cached seed. Call after the watcher detects a change.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = nil
}

func readYAML(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Parse decodes a single seed document without validating it.
func Parse(b []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &s, nil
}

// mergeSeed overlays b on a. Sets, boosters and cards are replaced by ID and
// keep a's order, with new IDs appended; collections are merged per user.
func mergeSeed(a, b *Seed) *Seed {
	out := &Seed{Version: a.Version}
	if b.Version != "" {
		out.Version = b.Version
	}
	out.Sets = mergeByID(a.Sets, b.Sets, func(s SetSpec) string { return s.ID })
	out.Boosters = mergeByID(a.Boosters, b.Boosters, func(s BoosterSpec) string { return s.ID })
	out.Cards = mergeByID(a.Cards, b.Cards, func(s CardSpec) string { return s.ID })

	if len(a.Collections)+len(b.Collections) > 0 {
		out.Collections = map[string]map[string]int{}
		for _, src := range []map[string]map[string]int{a.Collections, b.Collections} {
			for user, cards := range src {
				if out.Collections[user] == nil {
					out.Collections[user] = map[string]int{}
				}
				for id, qty := range cards {
					out.Collections[user][id] = qty
				}
			}
		}
	}
	return out
}

func mergeByID[T any](a, b []T, id func(T) string) []T {
	out := append([]T(nil), a...)
	index := make(map[string]int, len(out))
	for i, v := range out {
		index[id(v)] = i
	}
	for _, v := range b {
		if i, ok := index[id(v)]; ok {
			out[i] = v
			continue
		}
		index[id(v)] = len(out)
		out = append(out, v)
	}
	return out
}
