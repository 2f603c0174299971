package provider

import (
	"testing"
)

func TestCacheKey_CasingInsensitive(t *testing.T) {
	r1 := &Request{Keyword: "Coffee Maker", Language: "EN", Country: "us"}
	r2 := &Request{Keyword: "coffee maker", Language: "en", Country: "US"}

	if r1.CacheKey() != r2.CacheKey() {
		t.Errorf("Expected equal cache keys, got %q vs %q", r1.CacheKey(), r2.CacheKey())
	}
}

func TestCacheKey_ExtrasOrderIndependent(t *testing.T) {
	r1 := &Request{Keyword: "tv", Extras: map[string]string{"alias": "electronics", "market": "en-US"}}
	r2 := &Request{Keyword: "tv", Extras: map[string]string{"market": "en-US", "alias": "electronics"}}

	// Map iteration order is random; sorted extras must collide anyway.
	for i := 0; i < 10; i++ {
		if r1.CacheKey() != r2.CacheKey() {
			t.Fatalf("Expected equal cache keys, got %q vs %q", r1.CacheKey(), r2.CacheKey())
		}
	}
}

func TestCacheKey_DistinguishesRequests(t *testing.T) {
	r1 := &Request{Keyword: "coffee", Country: "US"}
	r2 := &Request{Keyword: "coffee", Country: "DE"}

	if r1.CacheKey() == r2.CacheKey() {
		t.Errorf("Expected different cache keys for different countries")
	}
}

func TestCacheKey_SeparatorsInValuesStayDistinct(t *testing.T) {
	// A value containing the join characters must not impersonate
	// additional extras pairs.
	r1 := &Request{Keyword: "coffee", Extras: map[string]string{"a": "1|b=2"}}
	r2 := &Request{Keyword: "coffee", Extras: map[string]string{"a": "1", "b": "2"}}

	if r1.CacheKey() == r2.CacheKey() {
		t.Errorf("Expected different cache keys, both %q", r1.CacheKey())
	}

	r3 := &Request{Keyword: "coffee|en"}
	r4 := &Request{Keyword: "coffee", Language: "en"}
	if r3.CacheKey() == r4.CacheKey() {
		t.Errorf("Expected different cache keys, both %q", r3.CacheKey())
	}
}

func TestExtra(t *testing.T) {
	r := &Request{Extras: map[string]string{"alias": "kitchen", "blank": "  "}}

	if got := r.Extra("alias", "aps"); got != "kitchen" {
		t.Errorf("Expected kitchen, got %q", got)
	}
	if got := r.Extra("blank", "aps"); got != "aps" {
		t.Errorf("Expected fallback for blank value, got %q", got)
	}
	if got := r.Extra("missing", "aps"); got != "aps" {
		t.Errorf("Expected fallback for missing key, got %q", got)
	}
}

func TestNewResult_EmptySuggestions(t *testing.T) {
	r := NewResult("coffee", nil, "test_endpoint")

	if r.Suggestions == nil {
		t.Fatal("Expected non-nil suggestions slice")
	}
	if len(r.Suggestions) != 0 {
		t.Errorf("Expected empty suggestions, got %v", r.Suggestions)
	}
	if r.Metadata["approx_volume"] != 0 {
		t.Errorf("Expected approx_volume 0, got %v", r.Metadata["approx_volume"])
	}
	if r.Metadata["computed_from"] != "test_endpoint" {
		t.Errorf("Expected computed_from test_endpoint, got %v", r.Metadata["computed_from"])
	}
}

func TestClone_Isolation(t *testing.T) {
	original := NewResult("coffee", []string{"coffee shop"}, "test")
	clone := original.Clone()

	clone.Suggestions[0] = "mutated"
	clone.Metadata["cached"] = true

	if original.Suggestions[0] != "coffee shop" {
		t.Errorf("Clone mutation leaked into original suggestions")
	}
	if _, ok := original.Metadata["cached"]; ok {
		t.Errorf("Clone mutation leaked into original metadata")
	}
}

func TestSanitizeLang(t *testing.T) {
	cases := map[string]string{
		"EN":      "en",
		"en-US":   "en",
		"  nl ":   "nl",
		"x":       "x",
		"":        "",
		"12!@":    "",
		"deutsch": "de",
	}
	for in, want := range cases {
		if got := SanitizeLang(in); got != want {
			t.Errorf("SanitizeLang(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeCountry(t *testing.T) {
	cases := map[string]string{
		"us":    "US",
		"U.S.":  "US",
		"gb12":  "GB",
		"":      "",
		"México": "MX",
	}
	for in, want := range cases {
		if got := SanitizeCountry(in); got != want {
			t.Errorf("SanitizeCountry(%q) = %q, want %q", in, got, want)
		}
	}
}
