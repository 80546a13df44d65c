// Package history serves a rider's finished rides and the weekly projection
// the coach works from.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend-ridermate/internal/ride"
	"backend-ridermate/internal/store"
)

var ErrRideNotFound = errors.New("ride not found")

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

func key(userID string) store.Key {
	return store.Key{UserID: userID, Kind: store.KindRides}
}

// Rides returns the user's rides, newest first.
func (s *Service) Rides(ctx context.Context, userID string) ([]ride.Ride, error) {
	return store.List[ride.Ride](ctx, s.store, key(userID))
}

func (s *Service) Ride(ctx context.Context, userID, rideID string) (ride.Ride, error) {
	rides, err := s.Rides(ctx, userID)
	if err != nil {
		return ride.Ride{}, err
	}
	for _, r := range rides {
		if r.ID == rideID {
			return r, nil
		}
	}
	return ride.Ride{}, ErrRideNotFound
}

// Record prepends a finished ride to the user's history.
func (s *Service) Record(ctx context.Context, userID string, r ride.Ride) error {
	if _, err := store.Prepend(ctx, s.store, key(userID), r); err != nil {
		return fmt.Errorf("record ride %s: %w", r.ID, err)
	}
	return nil
}

func (s *Service) Weekly(ctx context.Context, userID string) (ride.CoachStats, error) {
	rides, err := s.Rides(ctx, userID)
	if err != nil {
		return ride.CoachStats{}, err
	}
	return ride.WeeklyStats(rides, s.now()), nil
}
