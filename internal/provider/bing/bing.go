// Package bing adapts Bing's osjson autocomplete endpoint.
package bing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwlab/suggest-gateway/internal/provider"
)

type Bing struct {
	baseURL string
}

func New() provider.Provider {
	return &Bing{baseURL: "https://api.bing.com"}
}

func (b *Bing) Slug() string { return "bing" }
func (b *Bing) DisplayName() string { return "Bing" }
func (b *Bing) CacheTTL() time.Duration { return 6 * time.Hour }

func (b *Bing) Fetch(ctx context.Context, client *http.Client, req *provider.Request) (*provider.Result, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return provider.NewResult("", nil, "bing_osjson"), nil
	}

	params := url.Values{}
	params.Set("query", keyword)

	market := b.market(req)
	if market != "" {
		params.Set("mkt", market)
	}

	endpoint := fmt.Sprintf("%s/osjson.aspx?%s", b.baseURL, params.Encode())
	body, _, err := provider.Do(ctx, client, endpoint, "https://www.bing.com/")
	if err != nil {
		return nil, fmt.Errorf("bing suggest: %w", err)
	}

	suggestions, err := provider.PairSuggestions(body)
	if err != nil {
		return nil, fmt.Errorf("bing suggest: %w", err)
	}

	result := provider.NewResult(keyword, suggestions, "bing_osjson")
	if market != "" {
		result.Metadata["market"] = market
	}
	return result, nil
}

// market builds the mkt parameter from a caller-supplied extra or from the
// request's language+country, normalizing underscore separators.
func (b *Bing) market(req *provider.Request) string {
	if m := req.Extra("market", ""); m != "" {
		return strings.ReplaceAll(m, "_", "-")
	}

	lang := provider.SanitizeLang(req.Language)
	country := provider.SanitizeCountry(req.Country)
	if lang != "" && country != "" {
		return lang + "-" + country
	}
	return ""
}
