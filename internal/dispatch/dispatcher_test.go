package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kwlab/suggest-gateway/internal/provider"
)

// fakeProvider is a scriptable provider with call counting.
type fakeProvider struct {
	slug    string
	ttl     time.Duration
	calls   int32
	fetchFn func(ctx context.Context, req *provider.Request) (*provider.Result, error)
}

func (f *fakeProvider) Slug() string { return f.slug }
func (f *fakeProvider) DisplayName() string { return "Fake " + f.slug }
func (f *fakeProvider) CacheTTL() time.Duration { return f.ttl }

func (f *fakeProvider) Fetch(ctx context.Context, _ *http.Client, req *provider.Request) (*provider.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fetchFn != nil {
		return f.fetchFn(ctx, req)
	}
	return provider.NewResult(req.Keyword, []string{req.Keyword + " beans"}, f.slug+"_fake"), nil
}

func (f *fakeProvider) callCount() int32 { return atomic.LoadInt32(&f.calls) }

func newTestDispatcher(t *testing.T, providers ...*fakeProvider) *Dispatcher {
	t.Helper()
	registry := provider.NewRegistry()
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	return NewDispatcher(registry, Options{Logger: zerolog.Nop()})
}

func TestFetch_CacheHit(t *testing.T) {
	p := &fakeProvider{slug: "alpha", ttl: time.Hour}
	d := newTestDispatcher(t, p)
	req := &provider.Request{Keyword: "coffee", Language: "en", Country: "US"}

	first, err := d.Fetch(context.Background(), "alpha", req)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if first.Metadata["cached"] != false {
		t.Errorf("Expected cached=false on first fetch, got %v", first.Metadata["cached"])
	}

	second, err := d.Fetch(context.Background(), "alpha", req)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if second.Metadata["cached"] != true {
		t.Errorf("Expected cached=true on second fetch, got %v", second.Metadata["cached"])
	}
	if second.Metadata["cache_ttl"] != int64(3600) {
		t.Errorf("Expected cache_ttl 3600, got %v", second.Metadata["cache_ttl"])
	}
	if p.callCount() != 1 {
		t.Errorf("Expected one upstream call, got %d", p.callCount())
	}
}

func TestFetch_DifferentRequestsMiss(t *testing.T) {
	p := &fakeProvider{slug: "alpha", ttl: time.Hour}
	d := newTestDispatcher(t, p)

	if _, err := d.Fetch(context.Background(), "alpha", &provider.Request{Keyword: "coffee", Country: "US"}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := d.Fetch(context.Background(), "alpha", &provider.Request{Keyword: "coffee", Country: "DE"}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if p.callCount() != 2 {
		t.Errorf("Expected two upstream calls, got %d", p.callCount())
	}
}

func TestFetch_ExtrasWithSeparatorsDoNotShareCache(t *testing.T) {
	p := &fakeProvider{
		slug: "alpha",
		ttl:  time.Hour,
		fetchFn: func(_ context.Context, req *provider.Request) (*provider.Result, error) {
			return provider.NewResult(req.Keyword, []string{"for " + req.Extra("a", "")}, "fake"), nil
		},
	}
	d := newTestDispatcher(t, p)

	first, err := d.Fetch(context.Background(), "alpha", &provider.Request{
		Keyword: "coffee",
		Extras:  map[string]string{"a": "1|b=2"},
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	second, err := d.Fetch(context.Background(), "alpha", &provider.Request{
		Keyword: "coffee",
		Extras:  map[string]string{"a": "1", "b": "2"},
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if second.Metadata["cached"] != false {
		t.Error("Expected a cache miss for the distinct request")
	}
	if second.Suggestions[0] == first.Suggestions[0] {
		t.Errorf("Expected distinct results, both %q", first.Suggestions[0])
	}
	if p.callCount() != 2 {
		t.Errorf("Expected two upstream calls, got %d", p.callCount())
	}
}

func TestFetch_ZeroTTLNeverCaches(t *testing.T) {
	p := &fakeProvider{slug: "alpha", ttl: 0}
	d := newTestDispatcher(t, p)
	req := &provider.Request{Keyword: "coffee"}

	for i := 0; i < 3; i++ {
		result, err := d.Fetch(context.Background(), "alpha", req)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if result.Metadata["cached"] != false {
			t.Errorf("Expected cached=false, got %v", result.Metadata["cached"])
		}
	}
	if p.callCount() != 3 {
		t.Errorf("Expected three upstream calls, got %d", p.callCount())
	}
}

func TestFetch_UnknownProvider(t *testing.T) {
	d := newTestDispatcher(t, &fakeProvider{slug: "alpha", ttl: time.Hour})

	_, err := d.Fetch(context.Background(), "nope", &provider.Request{Keyword: "coffee"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
}

func TestFetch_NilResultRejected(t *testing.T) {
	p := &fakeProvider{
		slug: "alpha",
		ttl:  time.Hour,
		fetchFn: func(context.Context, *provider.Request) (*provider.Result, error) {
			return nil, nil
		},
	}
	d := newTestDispatcher(t, p)

	if _, err := d.Fetch(context.Background(), "alpha", &provider.Request{Keyword: "coffee"}); err == nil {
		t.Fatal("Expected error for nil result")
	}
}

func TestFetchMany_PartialFailure(t *testing.T) {
	good := &fakeProvider{slug: "good", ttl: time.Hour}
	bad := &fakeProvider{
		slug: "bad",
		ttl:  time.Hour,
		fetchFn: func(context.Context, *provider.Request) (*provider.Result, error) {
			return nil, errors.New("upstream status 503")
		},
	}
	d := newTestDispatcher(t, good, bad)

	outcomes := d.FetchMany(context.Background(), []string{"good", "bad"}, &provider.Request{Keyword: "coffee"})

	if len(outcomes) != 2 {
		t.Fatalf("Expected two outcomes, got %d", len(outcomes))
	}
	if outcomes["good"].Error != "" || outcomes["good"].Data == nil {
		t.Errorf("Expected good to succeed: %+v", outcomes["good"])
	}
	if outcomes["bad"].Error == "" || outcomes["bad"].Data != nil {
		t.Errorf("Expected bad to fail: %+v", outcomes["bad"])
	}
}

func TestFetchMany_UnknownSlugIsolated(t *testing.T) {
	d := newTestDispatcher(t, &fakeProvider{slug: "alpha", ttl: time.Hour})

	outcomes := d.FetchMany(context.Background(), []string{"alpha", "ghost"}, &provider.Request{Keyword: "coffee"})

	if outcomes["alpha"].Data == nil {
		t.Errorf("Expected alpha to succeed: %+v", outcomes["alpha"])
	}
	if outcomes["ghost"].Error == "" {
		t.Errorf("Expected ghost to report an error: %+v", outcomes["ghost"])
	}
}

func TestFetchMany_NormalizesAndDedupes(t *testing.T) {
	p := &fakeProvider{slug: "alpha", ttl: 0}
	d := newTestDispatcher(t, p)

	outcomes := d.FetchMany(context.Background(), []string{" Alpha ", "alpha", "", "ALPHA"}, &provider.Request{Keyword: "coffee"})

	if len(outcomes) != 1 {
		t.Fatalf("Expected one outcome, got %d: %v", len(outcomes), outcomes)
	}
	if p.callCount() != 1 {
		t.Errorf("Expected one upstream call, got %d", p.callCount())
	}
	if _, ok := outcomes["alpha"]; !ok {
		t.Error("Expected outcome keyed by normalized slug")
	}
}

func TestFetchMany_AggregatesAcrossProviders(t *testing.T) {
	google := &fakeProvider{
		slug: "google",
		ttl:  time.Hour,
		fetchFn: func(_ context.Context, req *provider.Request) (*provider.Result, error) {
			return provider.NewResult(req.Keyword, []string{"coffee shop", "coffee near me"}, "google_fake"), nil
		},
	}
	bing := &fakeProvider{
		slug: "bing",
		ttl:  time.Hour,
		fetchFn: func(_ context.Context, req *provider.Request) (*provider.Result, error) {
			return provider.NewResult(req.Keyword, []string{"coffee beans"}, "bing_fake"), nil
		},
	}
	d := newTestDispatcher(t, google, bing)
	req := &provider.Request{Keyword: "coffee", Language: "en", Country: "US"}

	outcomes := d.FetchMany(context.Background(), []string{"google", "bing"}, req)

	if len(outcomes["google"].Data.Suggestions) != 2 {
		t.Errorf("Expected two google suggestions, got %v", outcomes["google"].Data.Suggestions)
	}
	if len(outcomes["bing"].Data.Suggestions) != 1 {
		t.Errorf("Expected one bing suggestion, got %v", outcomes["bing"].Data.Suggestions)
	}
	for slug, outcome := range outcomes {
		if outcome.Error != "" {
			t.Errorf("Expected no error for %s, got %s", slug, outcome.Error)
		}
		if outcome.Data.Keyword != "coffee" {
			t.Errorf("Expected keyword echoed for %s, got %s", slug, outcome.Data.Keyword)
		}
	}
}

func TestListProviders(t *testing.T) {
	d := newTestDispatcher(t,
		&fakeProvider{slug: "beta", ttl: 2 * time.Hour},
		&fakeProvider{slug: "alpha", ttl: time.Hour},
	)

	infos := d.ListProviders()
	if len(infos) != 2 {
		t.Fatalf("Expected two providers, got %d", len(infos))
	}
	if infos[0].Slug != "alpha" || infos[1].Slug != "beta" {
		t.Errorf("Expected sorted slugs, got %v", infos)
	}
	if infos[0].CacheTTLSec != 3600 {
		t.Errorf("Expected TTL 3600s, got %d", infos[0].CacheTTLSec)
	}
}
