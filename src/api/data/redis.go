package data

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resetPrefix   = "pwreset:"
	attemptPrefix = "codefail:"

	resetTTL   = 15 * time.Minute
	attemptTTL = 10 * time.Minute
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// SetResetToken stores a single-use password reset token for a user.
func SetResetToken(ctx context.Context, rdb *redis.Client, token, userID string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, resetPrefix+token, userID, resetTTL).Err()
}

// TakeResetToken consumes a reset token, returning the user it was
// issued for. A token can be used exactly once.
func TakeResetToken(ctx context.Context, rdb *redis.Client, token string) (string, error) {
	if rdb == nil {
		return "", redis.Nil
	}
	return rdb.GetDel(ctx, resetPrefix+token).Result()
}

// CodeFailures returns how many wrong access-code attempts a client has
// made against a poll inside the current window.
func CodeFailures(ctx context.Context, rdb *redis.Client, pollID, client string) int64 {
	if rdb == nil {
		return 0
	}
	n, err := rdb.Get(ctx, attemptPrefix+pollID+":"+client).Int64()
	if err != nil {
		return 0
	}
	return n
}

// RegisterCodeFailure bumps the wrong access-code counter for a
// poll+client pair. Counters expire on their own.
func RegisterCodeFailure(ctx context.Context, rdb *redis.Client, pollID, client string) {
	if rdb == nil {
		return
	}
	key := attemptPrefix + pollID + ":" + client
	if n, err := rdb.Incr(ctx, key).Result(); err == nil && n == 1 {
		rdb.Expire(ctx, key, attemptTTL)
	}
}
