package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-ridermate/internal/store"

	"github.com/gookit/validate"
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func key(userID string) store.Key {
	return store.Key{UserID: userID, Kind: store.KindProfile}
}

func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := s.store.Get(ctx, key(userID), &p)
	if errors.Is(err, store.ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (s *Service) Save(ctx context.Context, userID string, p Profile) (Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if v := validate.Struct(&p); !v.Validate() {
		return Profile{}, fmt.Errorf("%w: %s", ErrInvalid, v.Errors.One())
	}
	if err := s.store.Set(ctx, key(userID), p); err != nil {
		return Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// Seed writes the registration profile for email unless one exists.
func (s *Service) Seed(ctx context.Context, userID, email string) error {
	var existing Profile
	err := s.store.Get(ctx, key(userID), &existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load profile: %w", err)
	}

	p := Default()
	p.Name, _, _ = strings.Cut(email, "@")
	p.Age = 25
	if p.Name == "" {
		p.Name = Default().Name
	}
	if err := s.store.Set(ctx, key(userID), p); err != nil {
		return fmt.Errorf("seed profile: %w", err)
	}
	return nil
}

var ErrInvalid = errors.New("invalid profile")
