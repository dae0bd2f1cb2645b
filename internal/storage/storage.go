// Package storage is the mirror's blob store: a flat key space with get,
// overwrite, prefix listing and server-side copy.
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get and Copy when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Store is implemented by every mirror backend.
type Store interface {
	// Get returns ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put overwrites key unconditionally.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// List returns every key under prefix, having followed all pages.
	List(ctx context.Context, prefix string) ([]string, error)
	Copy(ctx context.Context, src, dst string) error
}

type object struct {
	data        []byte
	contentType string
}

// Memory is an in-process Store. Listing is paged like the cloud backends.
type Memory struct {
	objects  map[string]object
	mu       sync.RWMutex
	pageSize int
	writes   int
}

func NewMemory() *Memory {
	return &Memory{
		objects:  make(map[string]object),
		pageSize: 1000,
	}
}

// SetPageSize changes how many keys a single listing page holds.
func (m *Memory) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = max(1, n)
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, exists := m.objects[key]
	if !exists {
		return nil, ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *Memory) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = object{data: append([]byte(nil), data...), contentType: contentType}
	m.writes++
	return nil
}

func (m *Memory) Copy(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, exists := m.objects[src]
	if !exists {
		return ErrNotFound
	}
	m.objects[dst] = obj
	m.writes++
	return nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, next := m.listPage(prefix, token)
		keys = append(keys, page...)
		if next == "" {
			return keys, nil
		}
		token = next
	}
}

// listPage returns up to pageSize keys after token and the token of the next page.
func (m *Memory) listPage(prefix, token string) ([]string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) && k > token {
			all = append(all, k)
		}
	}
	sort.Strings(all)
	if len(all) <= m.pageSize {
		return all, ""
	}
	page := all[:m.pageSize]
	return page, page[len(page)-1]
}

// ContentType returns the content type key was stored with.
func (m *Memory) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

// Writes counts the Put and Copy calls so far.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Keys returns every stored key in order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
