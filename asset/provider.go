// Package asset loads models, walkmeshes, textures and area layouts from disk
// and caches them by resource name.
package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"kotor-render/core"
)

// LoadFunc loads the resource called name.
type LoadFunc[T any] func(name string) (T, error)

type entry[T any] struct {
	value T
	ok    bool
}

// Provider caches resources by name. Failed loads are cached too, so a
// missing resource is only looked up (and logged) once. Get is safe for
// concurrent use.
type Provider[T any] struct {
	kind string
	load LoadFunc[T]

	mu    sync.RWMutex
	cache map[string]entry[T]
}

func NewProvider[T any](kind string, load LoadFunc[T]) *Provider[T] {
	return &Provider[T]{
		kind:  kind,
		load:  load,
		cache: make(map[string]entry[T]),
	}
}

// Get returns the cached resource, loading it on first use. Every call for
// the same name returns the same value.
func (p *Provider[T]) Get(name string) (T, bool) {
	p.mu.RLock()
	e, cached := p.cache[name]
	p.mu.RUnlock()
	if cached {
		return e.value, e.ok
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another goroutine may have loaded it while we waited for the lock
	if e, cached := p.cache[name]; cached {
		return e.value, e.ok
	}
	value, err := p.load(name)
	if err != nil {
		core.Logger().Warn("failed to load asset", "kind", p.kind, "name", name, "err", err)
		var zero T
		p.cache[name] = entry[T]{value: zero}
		return zero, false
	}
	p.cache[name] = entry[T]{value: value, ok: true}
	return value, true
}

// Put registers a resource built in memory, replacing any cached one.
func (p *Provider[T]) Put(name string, value T) {
	p.mu.Lock()
	p.cache[name] = entry[T]{value: value, ok: true}
	p.mu.Unlock()
}

// Len returns the number of cached entries, failed loads included.
func (p *Provider[T]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}

// Each visits every successfully loaded resource.
func (p *Provider[T]) Each(fn func(name string, value T)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, e := range p.cache {
		if e.ok {
			fn(name, e.value)
		}
	}
}

// Clear drops the cache.
func (p *Provider[T]) Clear() {
	p.mu.Lock()
	p.cache = make(map[string]entry[T])
	p.mu.Unlock()
}

// Resolve finds name with the first matching extension under dir.
func Resolve(dir, name string, exts ...string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty resource name: %w", core.ErrInvalidArgument)
	}
	for _, ext := range exts {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("resource %q in %s: %w", name, dir, fs.ErrNotExist)
}
