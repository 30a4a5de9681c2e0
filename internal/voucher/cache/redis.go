// Package cache answers repeat scans of completed vouchers from Redis.
// COMPLETED is terminal, so a cached outcome can never go stale.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"reliefpass/internal/voucher/models"
)

const keyPrefix = "reliefpass:redemption:"

// RedemptionCache stores completed redemptions keyed by a digest of the
// token, so the keyspace never holds a usable credential name.
type RedemptionCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func New(client redis.Cmdable, ttl time.Duration) *RedemptionCache {
	return &RedemptionCache{client: client, ttl: ttl}
}

type entry struct {
	Voucher    *models.Voucher    `json:"voucher"`
	ScanRecord *models.ScanRecord `json:"scan_record"`
}

// Get returns the cached redemption as an ALREADY_REDEEMED outcome.
func (c *RedemptionCache) Get(ctx context.Context, token string) (*models.Redemption, bool, error) {
	raw, err := c.client.Get(ctx, Key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redemption cache get: %w", err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, fmt.Errorf("redemption cache decode: %w", err)
	}
	return &models.Redemption{
		Outcome:    models.OutcomeAlreadyRedeemed,
		Voucher:    e.Voucher,
		ScanRecord: e.ScanRecord,
	}, true, nil
}

// Put caches a completed redemption. Anything else is ignored.
func (c *RedemptionCache) Put(ctx context.Context, token string, r *models.Redemption) error {
	if r == nil || r.Voucher == nil || r.ScanRecord == nil || r.Voucher.Status != models.StatusCompleted {
		return nil
	}
	raw, err := json.Marshal(entry{Voucher: r.Voucher, ScanRecord: r.ScanRecord})
	if err != nil {
		return fmt.Errorf("redemption cache encode: %w", err)
	}
	if err := c.client.Set(ctx, Key(token), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redemption cache set: %w", err)
	}
	return nil
}

// Key derives the Redis key for token.
func Key(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}
