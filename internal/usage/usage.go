// Package usage records per-tenant suggestion queries for accounting and
// for the cache warmer's hot-keyword feed.
package usage

import (
	"context"
	"time"
)

// QueryLog is one dispatched suggestion request.
type QueryLog struct {
	ID              string
	TenantID        string
	RequestID       string
	Keyword         string
	Language        string
	Country         string
	Providers       []string
	FailedProviders int
	SuggestionCount int
	LatencyMs       int64
	CreatedAt       time.Time
}

// KeywordCount is an aggregate row for the hot-keyword feed.
type KeywordCount struct {
	Keyword  string
	Language string
	Country  string
	Queries  int64
}

type Store interface {
	LogQuery(ctx context.Context, log *QueryLog) error
	GetByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]*QueryLog, error)
	CountByTenant(ctx context.Context, tenantID string, from, to time.Time) (int64, error)
	// TopKeywords returns the most-queried keywords across all tenants
	// since the given time, busiest first.
	TopKeywords(ctx context.Context, since time.Time, limit int) ([]*KeywordCount, error)
}
