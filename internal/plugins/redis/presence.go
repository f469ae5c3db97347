package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKey = "presence:online"

// PresenceStore keeps a self-cleaning ZSet of users scored by their last
// check-in. Stale members age out of reads and the whole key expires when
// the process stops touching it, so crashes leave no ghosts behind.
type PresenceStore struct {
	rdb    *redis.Client
	window time.Duration
}

func NewPresenceStore(rdb *redis.Client, window time.Duration) *PresenceStore {
	return &PresenceStore{rdb: rdb, window: window}
}

// Touch marks the user online now and refreshes the key's expiry.
func (p *PresenceStore) Touch(ctx context.Context, userID string) error {
	err := p.rdb.ZAdd(ctx, presenceKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: userID,
	}).Err()
	if err != nil {
		return err
	}
	return p.rdb.Expire(ctx, presenceKey, p.window*2).Err()
}

// Online returns users who checked in within the liveness window.
func (p *PresenceStore) Online(ctx context.Context) ([]string, error) {
	threshold := time.Now().Add(-p.window).Unix()

	// Remove stale members first (self-cleaning)
	p.rdb.ZRemRangeByScore(ctx, presenceKey, "-inf", strconv.FormatInt(threshold, 10))

	return p.rdb.ZRange(ctx, presenceKey, 0, -1).Result()
}

func (p *PresenceStore) Clear(ctx context.Context) error {
	return p.rdb.Del(ctx, presenceKey).Err()
}
