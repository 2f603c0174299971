package bing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kwlab/suggest-gateway/internal/provider"
)

func TestFetch_Mock(t *testing.T) {
	var gotMkt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMkt = r.URL.Query().Get("mkt")
		fmt.Fprint(w, `["coffee",["coffee beans"]]`)
	}))
	defer server.Close()

	b := &Bing{baseURL: server.URL}
	req := &provider.Request{Keyword: "coffee", Language: "en", Country: "US"}

	result, err := b.Fetch(context.Background(), server.Client(), req)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotMkt != "en-US" {
		t.Errorf("Expected mkt en-US, got %s", gotMkt)
	}
	if len(result.Suggestions) != 1 || result.Suggestions[0] != "coffee beans" {
		t.Errorf("Expected [coffee beans], got %v", result.Suggestions)
	}
	if result.Metadata["market"] != "en-US" {
		t.Errorf("Expected market metadata en-US, got %v", result.Metadata["market"])
	}
}

func TestFetch_MarketFromExtras(t *testing.T) {
	var gotMkt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMkt = r.URL.Query().Get("mkt")
		fmt.Fprint(w, `["coffee",[]]`)
	}))
	defer server.Close()

	b := &Bing{baseURL: server.URL}
	// Underscore separators are normalized to hyphens.
	req := &provider.Request{Keyword: "coffee", Extras: map[string]string{"market": "de_DE"}}

	if _, err := b.Fetch(context.Background(), server.Client(), req); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotMkt != "de-DE" {
		t.Errorf("Expected mkt de-DE, got %s", gotMkt)
	}
}

func TestFetch_NoMarketWithoutLocale(t *testing.T) {
	var hadMkt bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hadMkt = r.URL.Query().Has("mkt")
		fmt.Fprint(w, `["coffee",[]]`)
	}))
	defer server.Close()

	b := &Bing{baseURL: server.URL}
	if _, err := b.Fetch(context.Background(), server.Client(), &provider.Request{Keyword: "coffee"}); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if hadMkt {
		t.Error("Expected no mkt parameter without language+country")
	}
}

func TestFetch_EmptyKeyword(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	b := &Bing{baseURL: server.URL}
	result, err := b.Fetch(context.Background(), server.Client(), &provider.Request{Keyword: ""})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("Expected zero upstream calls, got %d", calls)
	}
	if len(result.Suggestions) != 0 {
		t.Errorf("Expected empty suggestions, got %v", result.Suggestions)
	}
}

func TestSlug(t *testing.T) {
	if New().Slug() != "bing" {
		t.Errorf("Expected bing, got %s", New().Slug())
	}
}
