package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/kwlab/suggest-gateway/internal/provider"
)

// ErrUnknownProvider is returned when a caller asks for a slug that is not
// in the registry.
var ErrUnknownProvider = errors.New("unknown provider")

// Options tunes a Dispatcher. Zero values fall back to defaults.
type Options struct {
	// Timeout bounds each upstream HTTP call.
	Timeout time.Duration
	// CacheSize bounds the suggestion cache entry count.
	CacheSize int
	// Concurrency bounds parallel provider calls within one FetchMany.
	Concurrency int
	Logger      zerolog.Logger
}

// ProviderInfo describes a registered provider for capability discovery.
type ProviderInfo struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
	CacheTTLSec int64  `json:"cache_ttl_seconds"`
}

// Outcome is the per-provider result of a fan-out. Exactly one of Data
// and Error is meaningful: a failed provider carries its error message and
// no data, and never aborts the batch.
type Outcome struct {
	Data  *provider.Result `json:"data"`
	Error string           `json:"error,omitempty"`
}

// Dispatcher owns the suggestion cache and the shared upstream HTTP
// client, and mediates all provider access. Providers themselves stay
// stateless and are reached only through Fetch / FetchMany.
type Dispatcher struct {
	registry    *provider.Registry
	cache       *Cache
	client      *http.Client
	breakers    map[string]*gobreaker.CircuitBreaker
	concurrency int
	logger      zerolog.Logger
}

// NewDispatcher builds a dispatcher over the registry. One circuit
// breaker per provider keeps a flapping upstream from being hammered
// while never widening a single provider's failure into a batch failure.
func NewDispatcher(registry *provider.Registry, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 6 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker)
	for slug := range registry.All() {
		settings := gobreaker.Settings{
			Name:        slug,
			MaxRequests: 3,
			Interval:    5 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}
		breakers[slug] = gobreaker.NewCircuitBreaker(settings)
	}

	return &Dispatcher{
		registry:    registry,
		cache:       NewCache(opts.CacheSize),
		client:      &http.Client{Timeout: opts.Timeout},
		breakers:    breakers,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

// ListProviders describes every registered provider, sorted by slug.
func (d *Dispatcher) ListProviders() []ProviderInfo {
	slugs := d.registry.Slugs()
	infos := make([]ProviderInfo, 0, len(slugs))
	for _, slug := range slugs {
		p, ok := d.registry.Get(slug)
		if !ok {
			continue
		}
		infos = append(infos, ProviderInfo{
			Slug:        slug,
			DisplayName: p.DisplayName(),
			CacheTTLSec: int64(p.CacheTTL() / time.Second),
		})
	}
	return infos
}

// Has reports whether slug names a registered provider.
func (d *Dispatcher) Has(slug string) bool {
	_, ok := d.registry.Get(slug)
	return ok
}

// Fetch resolves one provider's suggestions for the request, serving from
// the cache when fresh. Cached responses are stamped cached=true with the
// TTL they were stored under; fresh responses get cached=false and are
// stored only when the provider's TTL is positive.
func (d *Dispatcher) Fetch(ctx context.Context, slug string, req *provider.Request) (*provider.Result, error) {
	p, ok := d.registry.Get(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, slug)
	}
	slug = p.Slug()

	key := slug + "\x00" + req.CacheKey()
	if cached, ttl, hit := d.cache.Get(key); hit {
		cached.Metadata["cached"] = true
		cached.Metadata["cache_ttl"] = int64(ttl / time.Second)
		d.logger.Debug().Str("provider", slug).Str("keyword", req.Keyword).Msg("cache hit")
		return cached, nil
	}

	result, err := d.invoke(ctx, p, req)
	if err != nil {
		return nil, err
	}

	ttl := p.CacheTTL()
	if result.Metadata == nil {
		result.Metadata = make(map[string]any)
	}
	result.Metadata["cached"] = false
	result.Metadata["cache_ttl"] = int64(ttl / time.Second)

	if ttl > 0 {
		d.cache.Set(key, result, ttl)
	}
	return result, nil
}

// invoke runs the provider fetch through its circuit breaker and rejects
// malformed plugin output (a nil result without an error is a provider
// bug, not an upstream condition).
func (d *Dispatcher) invoke(ctx context.Context, p provider.Provider, req *provider.Request) (*provider.Result, error) {
	fetch := func() (interface{}, error) {
		return p.Fetch(ctx, d.client, req)
	}

	var raw interface{}
	var err error
	if cb, ok := d.breakers[p.Slug()]; ok {
		raw, err = cb.Execute(fetch)
	} else {
		raw, err = fetch()
	}
	if err != nil {
		d.logger.Warn().Str("provider", p.Slug()).Str("keyword", req.Keyword).Err(err).Msg("provider fetch failed")
		return nil, fmt.Errorf("provider %s: %w", p.Slug(), err)
	}

	result, ok := raw.(*provider.Result)
	if !ok || result == nil {
		return nil, fmt.Errorf("provider %s returned malformed result", p.Slug())
	}
	return result, nil
}

// FetchMany fans one request out to multiple providers and reports a
// per-slug outcome. Partial failure is the normal case: a provider that is
// down, rate-limited, or returning garbage only voids its own slot.
func (d *Dispatcher) FetchMany(ctx context.Context, slugs []string, req *provider.Request) map[string]*Outcome {
	normalized := make([]string, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		normalized = append(normalized, slug)
	}

	outcomes := make(map[string]*Outcome, len(normalized))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, d.concurrency)

	for _, slug := range normalized {
		wg.Add(1)
		go func(slug string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := &Outcome{}
			result, err := d.Fetch(ctx, slug, req)
			if err != nil {
				outcome.Error = err.Error()
			} else {
				outcome.Data = result
			}

			mu.Lock()
			outcomes[slug] = outcome
			mu.Unlock()
		}(slug)
	}
	wg.Wait()

	return outcomes
}

// Close releases the shared HTTP connections and drops the cache.
func (d *Dispatcher) Close() {
	d.cache.Clear()
	d.client.CloseIdleConnections()
}
