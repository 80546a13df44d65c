// Package media registers photo objects a rider attaches to memories. Bytes
// are uploaded by the client straight to the object store; this service only
// hands out the reference.
package media

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"backend-ridermate/internal/auth"
	"backend-ridermate/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const uploadWindow = 15 * time.Minute

type Object struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	store   store.Store
	baseURL string
	now     func() time.Time
}

func NewService(st store.Store, baseURL string) *Service {
	return &Service{store: st, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func key(userID string) store.Key {
	return store.Key{UserID: userID, Kind: store.KindMedia}
}

func (s *Service) Register(ctx context.Context, userID, fileName, kind string) (Object, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	if kind == "" {
		kind = "photo"
	}
	id := uuid.NewString()
	now := s.now()
	obj := Object{
		ID:        id,
		URL:       fmt.Sprintf("%s/%s/%s-%s", s.baseURL, url.PathEscape(userID), id, url.PathEscape(name)),
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(uploadWindow),
	}
	if _, err := store.Prepend(ctx, s.store, key(userID), obj); err != nil {
		return Object{}, fmt.Errorf("save media object: %w", err)
	}
	return obj, nil
}

func (s *Service) Objects(ctx context.Context, userID string) ([]Object, error) {
	return store.List[Object](ctx, s.store, key(userID))
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			FileName string `json:"file_name"`
			Kind     string `json:"kind"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		obj, err := svc.Register(c.UserContext(), auth.UserID(c), body.FileName, body.Kind)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		objs, err := svc.Objects(c.UserContext(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(objs)
	})
}
