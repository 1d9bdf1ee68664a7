package redis

import (
	"context"
	"errors"
	"time"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPLAY GUARD
// Backend-attested requests carry a client nonce. SETNX with a TTL makes
// re-submission of the same nonce a no-op instead of a double award; the
// domain's own one-shot flags (lesson bits, claim flags) remain the
// authoritative guard, this just rejects replays before they hit the
// database.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultReplayTTL is how long a consumed nonce stays reserved.
const DefaultReplayTTL = 24 * time.Hour

// ErrEmptyNonce is returned when a request carries no nonce.
var ErrEmptyNonce = errors.New("replay: nonce cannot be empty")

// ReplayGuard deduplicates request nonces.
type ReplayGuard struct {
	cache *Cache
	ttl   time.Duration
}

// NewReplayGuard creates a replay guard with the default TTL.
func NewReplayGuard(cache *Cache) *ReplayGuard {
	return &ReplayGuard{cache: cache, ttl: DefaultReplayTTL}
}

// NewReplayGuardWithTTL creates a replay guard with a custom TTL.
func NewReplayGuardWithTTL(cache *Cache, ttl time.Duration) *ReplayGuard {
	return &ReplayGuard{cache: cache, ttl: ttl}
}

// Consume reserves the nonce. The first call for a nonce succeeds; any
// repeat within the TTL fails with ErrAlreadyProcessed.
func (g *ReplayGuard) Consume(ctx context.Context, nonce string) error {
	if nonce == "" {
		return ErrEmptyNonce
	}
	ok, err := g.cache.client.SetNX(ctx, PrefixReplay+nonce, 1, g.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrAlreadyProcessed
	}
	return nil
}

// Release frees a reserved nonce. Called when the guarded operation fails
// after reservation so a retry with the same nonce can go through.
func (g *ReplayGuard) Release(ctx context.Context, nonce string) error {
	if nonce == "" {
		return ErrEmptyNonce
	}
	return g.cache.client.Del(ctx, PrefixReplay+nonce).Err()
}
