// Package google adapts Google's public suggest endpoint.
package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwlab/suggest-gateway/internal/provider"
)

type Google struct {
	baseURL string
}

func New() provider.Provider {
	return &Google{baseURL: "https://suggestqueries.google.com"}
}

func (g *Google) Slug() string { return "google" }
func (g *Google) DisplayName() string { return "Google" }
func (g *Google) CacheTTL() time.Duration { return 6 * time.Hour }

func (g *Google) Fetch(ctx context.Context, client *http.Client, req *provider.Request) (*provider.Result, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return provider.NewResult("", nil, "google_autocomplete"), nil
	}

	params := url.Values{}
	// The firefox client variant returns a flat array of suggestion
	// strings instead of the nested arrays other clients get.
	params.Set("client", "firefox")
	params.Set("q", keyword)
	if lang := provider.SanitizeLang(req.Language); lang != "" {
		params.Set("hl", lang)
	}
	country := provider.SanitizeCountry(req.Country)
	if country != "" {
		params.Set("gl", country)
	}

	endpoint := fmt.Sprintf("%s/complete/search?%s", g.baseURL, params.Encode())
	body, _, err := provider.Do(ctx, client, endpoint, "https://www.google.com/")
	if err != nil {
		return nil, fmt.Errorf("google suggest: %w", err)
	}

	// Payload shape: ["keyword", ["s1", "s2", ...]]
	suggestions, err := provider.PairSuggestions(body)
	if err != nil {
		return nil, fmt.Errorf("google suggest: %w", err)
	}

	result := provider.NewResult(keyword, suggestions, "google_autocomplete")
	if country != "" {
		result.Metadata["country"] = country
	}
	return result, nil
}
