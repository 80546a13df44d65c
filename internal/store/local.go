package store

import (
	"context"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"
)

// Local is an in-process read-through cache used when Redis is not
// configured. It is only coherent for a single instance.
type Local struct {
	next  Store
	cache *freecache.Cache
	ttl   int
}

func NewLocal(next Store, sizeMB int, ttl time.Duration) *Local {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &Local{
		next:  next,
		cache: freecache.NewCache(sizeMB * 1024 * 1024),
		ttl:   max(int(ttl.Seconds()), 1),
	}
}

// localKey length-prefixes the user id so no id can collide with another
// id/kind pair.
func localKey(key Key) []byte {
	return fmt.Appendf(nil, "%d:%s:%s", len(key.UserID), key.UserID, key.Kind)
}

func (l *Local) Get(ctx context.Context, key Key, dest any) error {
	if raw, err := l.cache.Get(localKey(key)); err == nil {
		if json.Unmarshal(raw, dest) == nil {
			return nil
		}
	}
	if err := l.next.Get(ctx, key, dest); err != nil {
		return err
	}
	l.fill(key, dest)
	return nil
}

func (l *Local) Set(ctx context.Context, key Key, value any) error {
	l.cache.Del(localKey(key))
	if err := l.next.Set(ctx, key, value); err != nil {
		return err
	}
	l.fill(key, value)
	return nil
}

func (l *Local) fill(key Key, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = l.cache.Set(localKey(key), raw, l.ttl)
}
