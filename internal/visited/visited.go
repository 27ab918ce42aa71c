package visited

import (
	"sort"
	"sync"
)

// Store is a concurrency-safe set of normalized page URLs.
type Store struct {
	mu      sync.RWMutex
	visited map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		visited: make(map[string]struct{}),
	}
}

// LoadOrStore inserts url and reports whether it was already present.
// Check and insert happen under one lock.
func (v *Store) LoadOrStore(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.visited[url]; exists {
		return true
	}
	v.visited[url] = struct{}{}
	return false
}

func (v *Store) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.visited)
}

// Snapshot returns the members in sorted order.
func (v *Store) Snapshot() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	urls := make([]string, 0, len(v.visited))
	for url := range v.visited {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}
