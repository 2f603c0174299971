// Package amazon adapts Amazon's completion API. Amazon routes suggestions
// through per-country marketplaces, so the adapter resolves the request
// country to a marketplace id and falls back through known-good alternates
// when the upstream rejects one.
package amazon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwlab/suggest-gateway/internal/provider"
)

// defaultAlias is the "all departments" search alias.
const defaultAlias = "aps"

type marketplace struct {
	id  string
	tld string
}

var marketplaces = map[string]marketplace{
	"US": {"ATVPDKIKX0DER", "com"},
	"GB": {"A1F83G8C2ARO7P", "co.uk"},
	"UK": {"A1F83G8C2ARO7P", "co.uk"},
	"DE": {"A1PA6795UKMFR9", "de"},
	"FR": {"A13V1IB3VIYZZH", "fr"},
	"ES": {"A1RKKUPIHCS9HS", "es"},
	"IT": {"APJ6JRA9NG5V4", "it"},
	"CA": {"A2EUQ1WTGCTBG2", "ca"},
	"JP": {"A1VC38T7YXB528", "co.jp"},
	"IN": {"A21TJRUUN4KGV", "in"},
	"MX": {"A1AM78C64UM0Y8", "com.mx"},
	"BR": {"A2Q3Y263D00KWC", "com.br"},
	"AU": {"A39IBJ37TRP1C6", "com.au"},
	"NL": {"A1805IZSGTT6HS", "nl"},
}

// fallbackCountries are tried, in order, when the request country has no
// marketplace or its marketplace rejects the call with 400/403.
var fallbackCountries = []string{"US", "GB", "DE"}

type Amazon struct {
	// baseURL overrides the per-marketplace completion host in tests.
	baseURL string
}

func New() provider.Provider {
	return &Amazon{}
}

func (a *Amazon) Slug() string { return "amazon" }
func (a *Amazon) DisplayName() string { return "Amazon" }
func (a *Amazon) CacheTTL() time.Duration { return 12 * time.Hour }

type completionResponse struct {
	Suggestions []struct {
		Value string `json:"value"`
	} `json:"suggestions"`
}

func (a *Amazon) Fetch(ctx context.Context, client *http.Client, req *provider.Request) (*provider.Result, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return provider.NewResult("", nil, "amazon_completion"), nil
	}

	alias := strings.ToLower(req.Extra("alias", defaultAlias))
	country := provider.SanitizeCountry(req.Country)

	primary, hasPrimary := marketplaces[country]
	candidates := make([]marketplace, 0, 1+len(fallbackCountries))
	if hasPrimary {
		candidates = append(candidates, primary)
	}
	for _, c := range fallbackCountries {
		m := marketplaces[c]
		if !hasPrimary || m.id != primary.id {
			candidates = append(candidates, m)
		}
	}

	var lastErr error
	for i, m := range candidates {
		suggestions, err := a.query(ctx, client, m, keyword, alias, req.Language, country)
		if err != nil {
			if isMarketplaceRejection(err) {
				// Marketplace/auth mismatch: try the next known-good one.
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("amazon suggest: %w", err)
		}

		usedAlias := alias
		aliasFellBack := false
		if len(suggestions) == 0 && alias != defaultAlias {
			// A department-scoped alias can legitimately be empty;
			// retry against all departments before reporting nothing.
			suggestions, err = a.query(ctx, client, m, keyword, defaultAlias, req.Language, country)
			if err != nil {
				return nil, fmt.Errorf("amazon suggest: alias fallback: %w", err)
			}
			usedAlias = defaultAlias
			aliasFellBack = true
		}

		// Fallback markers mean "the request's country could not be
		// served directly". A country-less request landing on the
		// default candidate is normal, not degraded.
		fellBack := i > 0
		if country != "" && !hasPrimary {
			fellBack = true
		}

		result := provider.NewResult(keyword, suggestions, "amazon_completion")
		result.Metadata["marketplace"] = m.id
		result.Metadata["alias"] = usedAlias
		if fellBack {
			result.Metadata["fallback"] = true
			result.Metadata["fallback_marketplace"] = m.id
		}
		if aliasFellBack {
			result.Metadata["fallback"] = true
		}
		return result, nil
	}

	return nil, fmt.Errorf("amazon suggest: all marketplaces rejected the request: %w", lastErr)
}

func (a *Amazon) query(ctx context.Context, client *http.Client, m marketplace, keyword, alias, language, country string) ([]string, error) {
	params := url.Values{}
	params.Set("prefix", keyword)
	params.Set("alias", alias)
	params.Set("mid", m.id)
	params.Set("limit", "11")
	params.Set("site-variant", "desktop")
	if lang := provider.SanitizeLang(language); lang != "" {
		lop := lang
		if country != "" {
			lop = lang + "_" + country
		}
		params.Set("lop", lop)
	}

	host := a.baseURL
	if host == "" {
		host = "https://completion.amazon." + m.tld
	}
	endpoint := fmt.Sprintf("%s/api/2017/suggestions?%s", host, params.Encode())

	body, status, err := provider.Do(ctx, client, endpoint, "https://www.amazon."+m.tld+"/")
	if err != nil {
		if status == http.StatusBadRequest || status == http.StatusForbidden {
			return nil, &rejectionError{status: status}
		}
		return nil, err
	}

	var payload completionResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	suggestions := make([]string, 0, len(payload.Suggestions))
	for _, s := range payload.Suggestions {
		if s.Value != "" {
			suggestions = append(suggestions, s.Value)
		}
	}
	return suggestions, nil
}

type rejectionError struct {
	status int
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("marketplace rejected request (status %d)", e.status)
}

func isMarketplaceRejection(err error) bool {
	_, ok := err.(*rejectionError)
	return ok
}
