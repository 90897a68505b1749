// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"fmt"
	"sort"
	"sync"

	storageErrors "github.com/qolzam/assetpipe/storage/errors"
)

// Registry holds the configured providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]BlobProvider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]BlobProvider)}
}

// Register adds or replaces a provider under its name
func (r *Registry) Register(p BlobProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the named provider or ErrProviderUnavailable
func (r *Registry) Get(name string) (BlobProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not configured", storageErrors.ErrProviderUnavailable, name)
	}
	return p, nil
}

// Available lists the configured provider names in sorted order. It never fails.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
