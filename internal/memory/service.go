package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-ridermate/internal/shared/geo"
	"backend-ridermate/internal/store"

	"github.com/google/uuid"
	"github.com/gookit/validate"
)

// Used when a memory arrives without a location fix.
const (
	FallbackLat = 12.9716
	FallbackLng = 77.5946

	DefaultNearbyRadiusKm = 5.0
)

var ErrInvalid = errors.New("invalid memory")

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

func key(userID string) store.Key {
	return store.Key{UserID: userID, Kind: store.KindMemories}
}

func (s *Service) Create(ctx context.Context, userID string, m Memory) (Memory, error) {
	m.Note = strings.TrimSpace(m.Note)
	if m.Privacy == "" {
		m.Privacy = Private
	}
	if m.Latitude == 0 && m.Longitude == 0 {
		m.Latitude, m.Longitude = FallbackLat, FallbackLng
	}
	if v := validate.Struct(&m); !v.Validate() {
		return Memory{}, fmt.Errorf("%w: %s", ErrInvalid, v.Errors.One())
	}
	if !m.Privacy.Valid() {
		return Memory{}, fmt.Errorf("%w: unknown privacy %q", ErrInvalid, m.Privacy)
	}
	if m.Timestamp == 0 {
		m.Timestamp = s.now().UnixMilli()
	}
	m.ID = uuid.NewString()

	if _, err := store.Prepend(ctx, s.store, key(userID), m); err != nil {
		return Memory{}, fmt.Errorf("save memory: %w", err)
	}
	return m, nil
}

// List returns the user's memories, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Memory, error) {
	return store.List[Memory](ctx, s.store, key(userID))
}

// Nearby returns memories within radiusKm of (lat, lng), keeping list order.
func (s *Service) Nearby(ctx context.Context, userID string, lat, lng, radiusKm float64) ([]Memory, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	all, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Memory, 0, len(all))
	for _, m := range all {
		if geo.WithinRadius(lat, lng, m.Latitude, m.Longitude, radiusKm) {
			out = append(out, m)
		}
	}
	return out, nil
}
