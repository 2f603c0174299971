package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Do issues a GET against an upstream autocomplete endpoint with the
// crawler User-Agent and an optional Referer, returning the body on 2xx.
// Non-2xx responses are errors carrying the status code so adapters can
// react to specific upstream rejections (e.g. Amazon marketplace 403s).
func Do(ctx context.Context, client *http.Client, rawurl, referer string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	return body, resp.StatusCode, nil
}
