package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) Store {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) LogQuery(ctx context.Context, log *QueryLog) error {
	query := `
		INSERT INTO query_logs (tenant_id, request_id, keyword, language, country, providers, failed_providers, suggestion_count, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query,
		log.TenantID, log.RequestID, log.Keyword, log.Language, log.Country,
		log.Providers, log.FailedProviders, log.SuggestionCount, log.LatencyMs,
	).Scan(&log.ID, &log.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to log query: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]*QueryLog, error) {
	query := `
		SELECT id, tenant_id, request_id, keyword, language, country, providers, failed_providers, suggestion_count, latency_ms, created_at
		FROM query_logs
		WHERE tenant_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var logs []*QueryLog
	for rows.Next() {
		var l QueryLog
		err := rows.Scan(
			&l.ID, &l.TenantID, &l.RequestID, &l.Keyword, &l.Language, &l.Country,
			&l.Providers, &l.FailedProviders, &l.SuggestionCount, &l.LatencyMs, &l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}
		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query logs: %w", err)
	}

	return logs, nil
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID string, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM query_logs
		WHERE tenant_id = $1 AND created_at BETWEEN $2 AND $3
	`
	var total int64
	err := s.db.QueryRow(ctx, query, tenantID, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count queries: %w", err)
	}

	return total, nil
}

func (s *PostgresStore) TopKeywords(ctx context.Context, since time.Time, limit int) ([]*KeywordCount, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT keyword, language, country, COUNT(*) AS queries
		FROM query_logs
		WHERE created_at >= $1 AND keyword <> ''
		GROUP BY keyword, language, country
		ORDER BY queries DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top keywords: %w", err)
	}
	defer rows.Close()

	var counts []*KeywordCount
	for rows.Next() {
		var c KeywordCount
		if err := rows.Scan(&c.Keyword, &c.Language, &c.Country, &c.Queries); err != nil {
			return nil, fmt.Errorf("failed to scan keyword count: %w", err)
		}
		counts = append(counts, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keyword counts: %w", err)
	}

	return counts, nil
}
