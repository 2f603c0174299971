// Package qwant adapts Qwant's suggest endpoint.
package qwant

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwlab/suggest-gateway/internal/provider"
)

type Qwant struct {
	baseURL string
}

func New() provider.Provider {
	return &Qwant{baseURL: "https://api.qwant.com"}
}

func (q *Qwant) Slug() string { return "qwant" }
func (q *Qwant) DisplayName() string { return "Qwant" }
func (q *Qwant) CacheTTL() time.Duration { return 3 * time.Hour }

func (q *Qwant) Fetch(ctx context.Context, client *http.Client, req *provider.Request) (*provider.Result, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return provider.NewResult("", nil, "qwant_suggest"), nil
	}

	params := url.Values{}
	params.Set("q", keyword)
	if lang := provider.SanitizeLang(req.Language); lang != "" {
		params.Set("lang", lang)
	}

	endpoint := fmt.Sprintf("%s/api/suggest/?%s", q.baseURL, params.Encode())
	body, _, err := provider.Do(ctx, client, endpoint, "https://www.qwant.com/")
	if err != nil {
		return nil, fmt.Errorf("qwant suggest: %w", err)
	}

	suggestions, err := provider.PairSuggestions(body)
	if err != nil {
		return nil, fmt.Errorf("qwant suggest: %w", err)
	}

	return provider.NewResult(keyword, suggestions, "qwant_suggest"), nil
}
