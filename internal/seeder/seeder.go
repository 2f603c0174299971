// Package seeder creates a development API key so the service is usable
// immediately after docker compose up. Never enabled in production.
package seeder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog"

	"github.com/kwlab/suggest-gateway/internal/auth"
)

const (
	TestAPIKey   = "dev-suggest-key-00000"
	TestTenantID = "00000000-0000-0000-0000-000000000001"
)

func SeedTestAPIKey(ctx context.Context, store auth.Store, logger zerolog.Logger) {
	sum := sha256.Sum256([]byte(TestAPIKey))

	apiKey := &auth.APIKey{
		TenantID:  TestTenantID,
		KeyHash:   hex.EncodeToString(sum[:]),
		Plan:      "dev",
		RateLimit: 10000,
		Active:    true,
	}

	if err := store.Create(ctx, apiKey); err != nil {
		logger.Info().Err(err).Msg("seeder: api key may already exist, skipping")
		return
	}
	logger.Info().
		Str("key", TestAPIKey).
		Str("tenant_id", TestTenantID).
		Msg("seeder: test api key created")
}
