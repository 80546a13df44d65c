// Package store is the per-user key-value persistence layer. Values are
// addressed by a composite Key so user ids never need to be concatenated
// with resource names.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type Kind string

const (
	KindProfile  Kind = "profile"
	KindRides    Kind = "rides"
	KindMemories Kind = "memories"
	KindMedia    Kind = "media"
)

type Key struct {
	UserID string
	Kind   Kind
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%q", k.Kind, k.UserID)
}

var ErrNotFound = errors.New("store: not found")

// Store is last-write-wins; there are no transactions across keys.
type Store interface {
	// Get decodes the value under key into dest or returns ErrNotFound.
	Get(ctx context.Context, key Key, dest any) error
	Set(ctx context.Context, key Key, value any) error
}

// List loads the list stored under key. A missing key is an empty list.
func List[T any](ctx context.Context, s Store, key Key) ([]T, error) {
	var items []T
	if err := s.Get(ctx, key, &items); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Prepend stores item in front of the existing list, keeping lists newest first.
// Prepends to the same key are serialized within the process so concurrent
// writers never lose an item.
func Prepend[T any](ctx context.Context, s Store, key Key, item T) ([]T, error) {
	unlock := listLocks.lock(key)
	defer unlock()

	items, err := List[T](ctx, s, key)
	if err != nil {
		return nil, err
	}
	updated := make([]T, 0, len(items)+1)
	updated = append(updated, item)
	updated = append(updated, items...)
	if err := s.Set(ctx, key, updated); err != nil {
		return nil, fmt.Errorf("save %s: %w", key, err)
	}
	return updated, nil
}

var listLocks = keyLocks{locks: map[Key]*keyLock{}}

type keyLock struct {
	sync.Mutex
	refs int
}

// keyLocks hands out one mutex per key and forgets it once nobody holds it.
type keyLocks struct {
	mu    sync.Mutex
	locks map[Key]*keyLock
}

func (k *keyLocks) lock(key Key) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
