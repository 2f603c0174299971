// Package worker keeps the suggestion cache warm by periodically
// re-dispatching the busiest recent keywords, so popular queries almost
// never pay an upstream round trip.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kwlab/suggest-gateway/internal/dispatch"
	"github.com/kwlab/suggest-gateway/internal/provider"
	"github.com/kwlab/suggest-gateway/internal/usage"
)

// Dispatcher is the slice of the suggestion dispatcher the warmer needs;
// tests substitute a fake.
type Dispatcher interface {
	FetchMany(ctx context.Context, slugs []string, req *provider.Request) map[string]*dispatch.Outcome
}

// Warmer refreshes the top recently-queried keywords through the
// dispatcher on a fixed interval. Individual failures are logged and
// skipped; the warmer itself never fails.
type Warmer struct {
	dispatcher Dispatcher
	usage      usage.Store
	slugs      []string
	interval   time.Duration
	topN       int
	logger     zerolog.Logger
}

func NewWarmer(dispatcher Dispatcher, usageStore usage.Store, slugs []string, interval time.Duration, topN int, logger zerolog.Logger) *Warmer {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if topN <= 0 {
		topN = 20
	}
	return &Warmer{
		dispatcher: dispatcher,
		usage:      usageStore,
		slugs:      slugs,
		interval:   interval,
		topN:       topN,
		logger:     logger,
	}
}

// Run loops until the context is cancelled.
func (w *Warmer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.WarmOnce(ctx)
		}
	}
}

// WarmOnce refreshes the current top keywords a single time. The fan-out
// results are discarded; populating the cache is the point.
func (w *Warmer) WarmOnce(ctx context.Context) {
	since := time.Now().Add(-24 * time.Hour)
	keywords, err := w.usage.TopKeywords(ctx, since, w.topN)
	if err != nil {
		w.logger.Warn().Err(err).Msg("warmer: top keywords query failed")
		return
	}

	for _, kw := range keywords {
		if ctx.Err() != nil {
			return
		}
		req := &provider.Request{
			Keyword:  kw.Keyword,
			Language: kw.Language,
			Country:  kw.Country,
		}
		outcomes := w.dispatcher.FetchMany(ctx, w.slugs, req)
		for slug, outcome := range outcomes {
			if outcome.Error != "" {
				w.logger.Debug().
					Str("provider", slug).
					Str("keyword", kw.Keyword).
					Str("error", outcome.Error).
					Msg("warmer: refresh failed")
			}
		}
	}

	if len(keywords) > 0 {
		w.logger.Debug().Int("keywords", len(keywords)).Msg("warmer: cycle complete")
	}
}
