// Package assets resolves remote fonts and images to inlined data URIs
// through a memory tier, the persistent store, and finally the network.
package assets

import (
	"sync"

	"github.com/sjc5/kit/pkg/typed"
	"github.com/sjc5/tessera/internal/common"
)

// MemoryCache holds one table per asset kind for the life of the process.
type MemoryCache struct {
	mu     sync.RWMutex
	fonts  *typed.SyncMap[string, string]
	images *typed.SyncMap[string, string]
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		fonts:  &typed.SyncMap[string, string]{},
		images: &typed.SyncMap[string, string]{},
	}
}

func (m *MemoryCache) table(kind common.AssetKind) *typed.SyncMap[string, string] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if kind == common.KindFont {
		return m.fonts
	}
	return m.images
}

func (m *MemoryCache) Load(kind common.AssetKind, url string) (string, bool) {
	return m.table(kind).Load(url)
}

func (m *MemoryCache) Store(kind common.AssetKind, url, payload string) {
	m.table(kind).Store(url, payload)
}

// Len counts the entries of one table.
func (m *MemoryCache) Len(kind common.AssetKind) int {
	n := 0
	m.table(kind).Range(func(string, string) bool {
		n++
		return true
	})
	return n
}

// Clear swaps in empty tables.
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	m.fonts = &typed.SyncMap[string, string]{}
	m.images = &typed.SyncMap[string, string]{}
	m.mu.Unlock()
}
