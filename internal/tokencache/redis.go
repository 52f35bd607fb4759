package tokencache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"preisradar/internal/apis/ebay/responses"
)

// Redis shares the token across processes; the key expires together with the token.
type Redis struct {
	rdb *redis.Client
	key string
	now func() time.Time
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func NewRedis(rdb *redis.Client, key string) *Redis {
	return &Redis{rdb: rdb, key: key, now: time.Now}
}

func (r *Redis) Get(ctx context.Context) (responses.Token, bool, error) {
	b, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return responses.Token{}, false, nil
	}
	if err != nil {
		return responses.Token{}, false, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var tok responses.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return responses.Token{}, false, fmt.Errorf("decode cached token: %w", err)
	}
	if !tok.Valid(r.now(), Skew) {
		return responses.Token{}, false, nil
	}
	return tok, true, nil
}

func (r *Redis) Set(ctx context.Context, tok responses.Token) error {
	ttl := tok.ExpiresAt.Sub(r.now()) - Skew
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

var _ Cache = (*Redis)(nil)
