package ledger

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedAdapter fronts an Adapter's GetMessage with a short-TTL Redis
// read-through cache. The release service is read-heavy on a small working
// set of open messages, so this trades a small staleness window for far
// fewer RPC round trips under load.
type CachedAdapter struct {
	inner *Adapter
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedAdapter wraps inner with a Redis cache using the given TTL.
func NewCachedAdapter(inner *Adapter, rdb *redis.Client, ttl time.Duration) *CachedAdapter {
	return &CachedAdapter{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(messageID *big.Int) string {
	return "ledger:message:" + messageID.String()
}

// GetMessage serves from cache when present and not expired, otherwise reads
// through to the chain and populates the cache.
func (c *CachedAdapter) GetMessage(ctx context.Context, messageID *big.Int, viewer string) (*Message, error) {
	key := cacheKey(messageID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached Message
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			if err := authorizeViewer(&cached, viewer); err != nil {
				return nil, err
			}
			return &cached, nil
		}
	}

	msg, err := c.inner.GetMessage(ctx, messageID, viewer)
	if err != nil {
		return nil, err
	}

	if encoded, marshalErr := json.Marshal(msg); marshalErr == nil {
		_ = c.rdb.Set(ctx, key, encoded, c.ttl).Err()
	}
	return msg, nil
}

// GetFinancialView always reads through; unlock state changes too quickly
// to cache safely against payToUnlock races.
func (c *CachedAdapter) GetFinancialView(ctx context.Context, messageID *big.Int) (*FinancialView, error) {
	return c.inner.GetFinancialView(ctx, messageID)
}

func authorizeViewer(m *Message, viewer string) error {
	if !equalFoldAddr(viewer, m.Sender) && !equalFoldAddr(viewer, m.Receiver) {
		return ErrUnauthorized
	}
	return nil
}

func equalFoldAddr(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
