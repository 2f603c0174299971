// Package brave adapts Brave Search's suggest endpoint.
package brave

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwlab/suggest-gateway/internal/provider"
)

type Brave struct {
	baseURL string
}

func New() provider.Provider {
	return &Brave{baseURL: "https://search.brave.com"}
}

func (b *Brave) Slug() string { return "brave" }
func (b *Brave) DisplayName() string { return "Brave Search" }
func (b *Brave) CacheTTL() time.Duration { return 3 * time.Hour }

func (b *Brave) Fetch(ctx context.Context, client *http.Client, req *provider.Request) (*provider.Result, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return provider.NewResult("", nil, "brave_suggest"), nil
	}

	params := url.Values{}
	params.Set("q", keyword)
	if country := provider.SanitizeCountry(req.Country); country != "" {
		params.Set("country", strings.ToLower(country))
	}

	endpoint := fmt.Sprintf("%s/api/suggest?%s", b.baseURL, params.Encode())
	body, _, err := provider.Do(ctx, client, endpoint, "https://search.brave.com/")
	if err != nil {
		return nil, fmt.Errorf("brave suggest: %w", err)
	}

	// Same two-element ["keyword", [...]] shape Qwant uses.
	suggestions, err := provider.PairSuggestions(body)
	if err != nil {
		return nil, fmt.Errorf("brave suggest: %w", err)
	}

	return provider.NewResult(keyword, suggestions, "brave_suggest"), nil
}
