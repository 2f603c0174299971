// Package duckduckgo adapts DuckDuckGo's autocomplete endpoint.
package duckduckgo

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

// worldwide is the region DuckDuckGo uses when no locale applies.
const worldwide = "wt-wt"

// langRegions maps bare languages to a known-good region when the request
// carries no usable country.
var langRegions = map[string]string{
	"en": "us-en",
	"de": "de-de",
	"fr": "fr-fr",
	"es": "es-es",
	"it": "it-it",
	"nl": "nl-nl",
	"pt": "br-pt",
	"pl": "pl-pl",
	"ru": "ru-ru",
	"ja": "jp-jp",
	"zh": "cn-zh",
	"sv": "se-sv",
	"no": "no-no",
	"da": "dk-da",
	"fi": "fi-fi",
	"tr": "tr-tr",
	"ar": "xa-ar",
	"ko": "kr-kr",
}

// knownRegions is the set of kl values DuckDuckGo accepts. Candidates not
// in this set are skipped rather than sent upstream.
var knownRegions = map[string]bool{
	"ar-es": true, "at-de": true, "au-en": true, "be-fr": true,
	"be-nl": true, "br-pt": true, "ca-en": true, "ca-fr": true,
	"ch-de": true, "ch-fr": true, "cl-es": true, "cn-zh": true,
	"co-es": true, "ct-ca": true, "cz-cs": true, "de-de": true,
	"dk-da": true, "es-es": true, "fi-fi": true, "fr-fr": true,
	"gr-el": true, "hk-tzh": true, "hu-hu": true, "id-en": true,
	"ie-en": true, "il-en": true, "in-en": true, "it-it": true,
	"jp-jp": true, "kr-kr": true, "mx-es": true, "my-en": true,
	"nl-nl": true, "no-no": true, "nz-en": true, "pe-es": true,
	"ph-en": true, "pl-pl": true, "pt-pt": true, "ro-ro": true,
	"ru-ru": true, "se-sv": true, "sg-en": true, "th-en": true,
	"tr-tr": true, "tw-tzh": true, "ua-uk": true, "uk-en": true,
	"us-en": true, "us-es": true, "vn-en": true, "xa-ar": true,
	"za-en": true,
}

type DuckDuckGo struct {
	baseURL string
}

func New() provider.Provider {
	return &DuckDuckGo{baseURL: "https://duckduckgo.com"}
}

func (d *DuckDuckGo) Slug() string { return "duckduckgo" }
func (d *DuckDuckGo) DisplayName() string { return "DuckDuckGo" }
func (d *DuckDuckGo) CacheTTL() time.Duration { return 6 * time.Hour }

func (d *DuckDuckGo) Fetch(ctx context.Context, client *http.Client, req *provider.Request) (*provider.Result, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return provider.NewResult("", nil, "duckduckgo_ac"), nil
	}

	params := url.Values{}
	params.Set("q", keyword)
	params.Set("type", "list")
	region := Region(req.Language, req.Country)
	params.Set("kl", region)

	endpoint := fmt.Sprintf("%s/ac/?%s", d.baseURL, params.Encode())
	body, _, err := provider.Do(ctx, client, endpoint, "https://duckduckgo.com/")
	if err != nil {
		return nil, fmt.Errorf("duckduckgo suggest: %w", err)
	}

	suggestions := parseSuggestions(body)

	result := provider.NewResult(keyword, suggestions, "duckduckgo_ac")
	result.Metadata["region"] = region
	return result, nil
}

// parseSuggestions accepts both shapes the /ac/ endpoint is known to
// return: a list of {"phrase": ...} objects and the OpenSearch
// ["kw", [...]] array requested via type=list.
func parseSuggestions(body []byte) []string {
	var phrases []struct {
		Phrase string `json:"phrase"`
	}
	if err := json.Unmarshal(body, &phrases); err == nil && len(phrases) > 0 {
		out := make([]string, 0, len(phrases))
		for _, p := range phrases {
			if p.Phrase != "" {
				out = append(out, p.Phrase)
			}
		}
		return out
	}

	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) < 2 {
		return nil
	}
	var raw []any
	if err := json.Unmarshal(payload[1], &raw); err != nil {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Region picks the kl parameter: country+language first, then the
// language mapping table, then the language doubled as its own region
// (hu -> hu-hu covers locales the table omits), finally worldwide. The
// first candidate DuckDuckGo actually accepts wins.
func Region(language, country string) string {
	lang := provider.SanitizeLang(language)
	ctry := strings.ToLower(provider.SanitizeCountry(country))

	var candidates []string
	if ctry != "" && lang != "" {
		candidates = append(candidates, ctry+"-"+lang)
	}
	if lang != "" {
		if mapped, ok := langRegions[lang]; ok {
			candidates = append(candidates, mapped)
		}
		candidates = append(candidates, lang+"-"+lang)
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		if knownRegions[c] {
			return c
		}
	}
	return worldwide
}
