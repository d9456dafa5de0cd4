package siggate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// DistributedNonceStore backs nonce replay checks with Redis, so multiple
// gate instances behind a load balancer share one nonce namespace. A nonce
// is recorded with SETNX plus a TTL expiry in one round trip.
type DistributedNonceStore struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// NewDistributedNonceStore wraps redisClient for nonce replay checks under
// prefix (defaults to "siggate:nonce" if empty).
func NewDistributedNonceStore(redisClient *redis.Client, ttl time.Duration, prefix string) *DistributedNonceStore {
	if prefix == "" {
		prefix = "siggate:nonce"
	}
	return &DistributedNonceStore{redis: redisClient, ttl: ttl, prefix: prefix}
}

// CheckAndInsert rejects a nonce already present in Redis, otherwise records
// it with the configured TTL.
func (s *DistributedNonceStore) CheckAndInsert(ctx context.Context, nonce string) error {
	key := fmt.Sprintf("%s:%s", s.prefix, nonce)
	ok, err := s.redis.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return folderrors.Wrap(folderrors.KindNonceValidationFailed, "nonce store unavailable", err)
	}
	if !ok {
		return folderrors.New(folderrors.KindNonceValidationFailed, "nonce already used", "nonce", nonce)
	}
	return nil
}
