// Package provider defines the contract between the suggestion dispatcher
// and the upstream autocomplete adapters.
package provider

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"
)

// UserAgent identifies the crawler to upstream autocomplete endpoints.
// Several of them block requests carrying the Go default agent.
const UserAgent = "Mozilla/5.0 (compatible; SuggestGateway/1.0; +https://github.com/kwlab/suggest-gateway)"

// Request is a normalized suggestion query. Language and Country are
// optional 2-letter codes; Extras carries provider-specific parameters
// (e.g. Amazon's department alias) as plain strings.
type Request struct {
	Keyword  string
	Language string
	Country  string
	Extras   map[string]string
}

// CacheKey returns a deterministic key for the request: two semantically
// equal requests produce the same key regardless of casing or the map
// iteration order of Extras, and two distinct requests never share one.
// Extras are caller-controlled, so separator characters inside components
// are escaped before joining.
func (r *Request) CacheKey() string {
	var b strings.Builder
	writeEscaped(&b, strings.ToLower(strings.TrimSpace(r.Keyword)))
	b.WriteByte('|')
	writeEscaped(&b, strings.ToLower(strings.TrimSpace(r.Language)))
	b.WriteByte('|')
	writeEscaped(&b, strings.ToUpper(strings.TrimSpace(r.Country)))

	if len(r.Extras) > 0 {
		keys := make([]string, 0, len(r.Extras))
		for k := range r.Extras {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte('|')
			writeEscaped(&b, k)
			b.WriteByte('=')
			writeEscaped(&b, r.Extras[k])
		}
	}

	return b.String()
}

func writeEscaped(b *strings.Builder, s string) {
	for _, c := range s {
		switch c {
		case '|', '=', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
}

// Extra returns the named extra parameter, or fallback when absent or blank.
func (r *Request) Extra(key, fallback string) string {
	if v, ok := r.Extras[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// Result is the normalized payload a provider returns. Suggestions is
// always non-nil. Metadata holds provider-specific resolution details
// (market, marketplace, region, fallbacks taken) and is augmented by the
// dispatcher with the cached / cache_ttl fields.
type Result struct {
	Keyword     string         `json:"keyword"`
	Suggestions []string       `json:"suggestions"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewResult builds a well-formed result for the keyword, stamping the
// approx_volume (suggestion count, not a real volume estimate) and the
// upstream mechanism it was computed from.
func NewResult(keyword string, suggestions []string, computedFrom string) *Result {
	if suggestions == nil {
		suggestions = []string{}
	}
	return &Result{
		Keyword:     keyword,
		Suggestions: suggestions,
		Metadata: map[string]any{
			"approx_volume": len(suggestions),
			"computed_from": computedFrom,
		},
	}
}

// Clone returns a deep copy. Callers of the cache mutate returned results
// (adding cached/cache_ttl), so the cached original must stay isolated.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{
		Keyword:     r.Keyword,
		Suggestions: make([]string, len(r.Suggestions)),
	}
	copy(out.Suggestions, r.Suggestions)
	if r.Metadata != nil {
		out.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Provider is a stateless adapter around one upstream autocomplete API.
// Implementations are shared across goroutines and must not hold mutable
// state. Fetch reports upstream failures as errors; turning those into
// partial-failure responses is the dispatcher's job alone.
type Provider interface {
	// Slug is the unique lower-case identifier (e.g. "google").
	Slug() string

	// DisplayName is the human-readable provider name.
	DisplayName() string

	// CacheTTL is how long results stay fresh. Zero opts the provider
	// out of caching entirely.
	CacheTTL() time.Duration

	// Fetch resolves the request against the upstream endpoint using the
	// shared HTTP client. An empty keyword returns an empty result
	// without touching the network.
	Fetch(ctx context.Context, client *http.Client, req *Request) (*Result, error)
}

// SanitizeLang normalizes a caller-supplied language code to at most two
// lower-case ASCII letters. Locale strings are never trusted verbatim in
// outbound URLs.
func SanitizeLang(lang string) string {
	return sanitizeCode(lang, false)
}

// SanitizeCountry normalizes a caller-supplied country code to at most two
// upper-case ASCII letters.
func SanitizeCountry(country string) string {
	return sanitizeCode(country, true)
}

func sanitizeCode(code string, upper bool) string {
	var b strings.Builder
	for _, c := range code {
		switch {
		case c >= 'a' && c <= 'z':
			if upper {
				c -= 'a' - 'A'
			}
		case c >= 'A' && c <= 'Z':
			if !upper {
				c += 'a' - 'A'
			}
		default:
			continue
		}
		b.WriteRune(c)
		if b.Len() == 2 {
			break
		}
	}
	return b.String()
}
