package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Cached fronts another Store with Redis. Each user gets one hash whose
// fields are the value kinds; values are zstd-compressed JSON since ride
// lists carry full GPS paths. Redis failures degrade to the backing store.
type Cached struct {
	next Store
	rdb  *redis.Client
	ttl  time.Duration
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	log  logrus.FieldLogger
}

func NewCached(next Store, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) (*Cached, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, enc: enc, dec: dec, log: log}, nil
}

func userHash(userID string) string {
	return "ridermate:user:" + userID
}

func (c *Cached) Get(ctx context.Context, key Key, dest any) error {
	raw, err := c.rdb.HGet(ctx, userHash(key.UserID), string(key.Kind)).Bytes()
	switch {
	case err == nil:
		plain, err := c.dec.DecodeAll(raw, nil)
		if err == nil && json.Unmarshal(plain, dest) == nil {
			return nil
		}
		c.log.WithField("key", key.String()).Warn("discarding unreadable cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).WithField("key", key.String()).Warn("cache read failed")
	}

	if err := c.next.Get(ctx, key, dest); err != nil {
		return err
	}
	c.fill(ctx, key, dest)
	return nil
}

func (c *Cached) Set(ctx context.Context, key Key, value any) error {
	if err := c.rdb.HDel(ctx, userHash(key.UserID), string(key.Kind)).Err(); err != nil {
		c.log.WithError(err).WithField("key", key.String()).Warn("cache invalidation failed")
	}
	if err := c.next.Set(ctx, key, value); err != nil {
		return err
	}
	c.fill(ctx, key, value)
	return nil
}

func (c *Cached) fill(ctx context.Context, key Key, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	packed := c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	hash := userHash(key.UserID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, hash, string(key.Kind), packed)
	pipe.Expire(ctx, hash, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).WithField("key", key.String()).Warn("cache fill failed")
	}
}
