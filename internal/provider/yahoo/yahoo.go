// Package yahoo adapts Yahoo's search gossip endpoint.
package yahoo

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

type Yahoo struct {
	baseURL string
}

func New() provider.Provider {
	return &Yahoo{baseURL: "https://sugg.search.yahoo.net"}
}

func (y *Yahoo) Slug() string { return "yahoo" }
func (y *Yahoo) DisplayName() string { return "Yahoo" }
func (y *Yahoo) CacheTTL() time.Duration { return 12 * time.Hour }

type gossipResponse struct {
	Gossip struct {
		Results []struct {
			Key string `json:"key"`
		} `json:"results"`
	} `json:"gossip"`
}

func (y *Yahoo) Fetch(ctx context.Context, client *http.Client, req *provider.Request) (*provider.Result, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return provider.NewResult("", nil, "yahoo_gossip"), nil
	}

	params := url.Values{}
	params.Set("command", keyword)
	params.Set("output", "json")
	params.Set("nresults", "10")

	endpoint := fmt.Sprintf("%s/sg/?%s", y.baseURL, params.Encode())
	body, _, err := provider.Do(ctx, client, endpoint, "https://search.yahoo.com/")
	if err != nil {
		return nil, fmt.Errorf("yahoo suggest: %w", err)
	}

	var payload gossipResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if !json.Valid(body) {
			return nil, fmt.Errorf("yahoo suggest: decode payload: %w", err)
		}
		// Valid JSON in an unexpected shape: treat as no suggestions.
		payload = gossipResponse{}
	}

	suggestions := make([]string, 0, len(payload.Gossip.Results))
	for _, r := range payload.Gossip.Results {
		if r.Key != "" {
			suggestions = append(suggestions, r.Key)
		}
	}

	return provider.NewResult(keyword, suggestions, "yahoo_gossip"), nil
}
