package provider

import (
	"encoding/json"
	"fmt"
)

// PairSuggestions decodes the OpenSearch-style two-element
// ["keyword", ["s1", ...]] payload several upstreams share. Valid JSON of
// an unexpected shape degrades to no suggestions; a body that is not JSON
// at all (usually a block page) is an error.
func PairSuggestions(body []byte) ([]string, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	arr, ok := payload.([]any)
	if !ok || len(arr) < 2 {
		return nil, nil
	}
	items, ok := arr[1].([]any)
	if !ok {
		return nil, nil
	}

	var out []string
	for _, v := range items {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
