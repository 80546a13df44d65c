package coach

import (
	"context"
	"strings"
	"time"

	"backend-ridermate/internal/auth"
	"backend-ridermate/internal/profile"
	"backend-ridermate/internal/ride"

	"github.com/gofiber/fiber/v2"
)

type ProfileSource interface {
	Get(ctx context.Context, userID string) (profile.Profile, error)
}

type StatsSource interface {
	Weekly(ctx context.Context, userID string) (ride.CoachStats, error)
}

func RegisterRoutes(r fiber.Router, coach *Coach, profiles ProfileSource, stats StatsSource, authMiddleware fiber.Handler) {
	load := func(c *fiber.Ctx) (ride.CoachStats, profile.Profile, error) {
		userID := auth.UserID(c)
		s, err := stats.Weekly(c.UserContext(), userID)
		if err != nil {
			return ride.CoachStats{}, profile.Profile{}, err
		}
		p, err := profiles.Get(c.UserContext(), userID)
		if err != nil {
			return ride.CoachStats{}, profile.Profile{}, err
		}
		return s, p, nil
	}

	r.Get("/summary", authMiddleware, func(c *fiber.Ctx) error {
		s, p, err := load(c)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(SummaryReply{Summary: coach.Summary(c.UserContext(), s, p), Stats: s})
	})

	r.Post("/chat", authMiddleware, func(c *fiber.Ctx) error {
		var req ChatRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			return fiber.NewError(fiber.StatusBadRequest, "message required")
		}
		s, p, err := load(c)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		reply := coach.Chat(c.UserContext(), req.Message, s, p, req.History)
		return c.JSON(ChatMessage{Sender: SenderAI, Text: reply, Timestamp: nowMillis()})
	})
}

var nowMillis = func() int64 { return time.Now().UnixMilli() }
