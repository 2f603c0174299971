package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrDuplicateProvider is returned when two providers claim the same slug.
// Registration happens once at startup, so this is always a wiring bug and
// the caller should treat it as fatal.
var ErrDuplicateProvider = errors.New("duplicate provider slug")

// Registry is a thread-safe slug -> provider lookup table. It is built
// explicitly during bootstrap and passed by reference to the dispatcher,
// so tests can construct isolated registries.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider, rejecting empty and duplicate slugs.
func (r *Registry) Register(p Provider) error {
	slug := strings.ToLower(strings.TrimSpace(p.Slug()))
	if slug == "" {
		return fmt.Errorf("provider %q has an empty slug", p.DisplayName())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[slug]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, slug)
	}
	r.providers[slug] = p
	return nil
}

// Get looks a provider up case-insensitively. Absence is an expected,
// checked condition: the second return value is false, no error.
func (r *Registry) Get(slug string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[strings.ToLower(strings.TrimSpace(slug))]
	return p, ok
}

// All returns a defensive copy of the slug -> provider mapping.
func (r *Registry) All() map[string]Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Provider, len(r.providers))
	for slug, p := range r.providers {
		out[slug] = p
	}
	return out
}

// Slugs returns all registered slugs in sorted order.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := make([]string, 0, len(r.providers))
	for slug := range r.providers {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
