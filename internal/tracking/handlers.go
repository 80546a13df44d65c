package tracking

import (
	"errors"
	"strings"

	"backend-ridermate/internal/auth"
	"backend-ridermate/internal/ride"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/rides", authMiddleware, func(c *fiber.Ctx) error {
		snap, err := svc.Start(c.UserContext(), auth.UserID(c))
		if err != nil {
			return trackingError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(snap)
	})

	r.Post("/rides/current/samples", authMiddleware, func(c *fiber.Ctx) error {
		var req Sample
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		snap, err := svc.AddSample(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return trackingError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/rides/current/errors", authMiddleware, func(c *fiber.Ctx) error {
		var req LocationError
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		msg := strings.TrimSpace(req.Message)
		if msg == "" {
			msg = "location unavailable"
		}
		if err := svc.ReportLocationError(auth.UserID(c), msg); err != nil {
			return trackingError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Get("/rides/current", authMiddleware, func(c *fiber.Ctx) error {
		snap, err := svc.Snapshot(c.UserContext(), auth.UserID(c))
		if err != nil {
			return trackingError(err)
		}
		return c.JSON(snap)
	})

	r.Post("/rides/current/stop", authMiddleware, func(c *fiber.Ctx) error {
		rd, err := svc.Stop(c.UserContext(), auth.UserID(c))
		if err != nil {
			return trackingError(err)
		}
		return c.JSON(rd)
	})

	r.Post("/rides/current/simulate", authMiddleware, func(c *fiber.Ctx) error {
		res, err := svc.ToggleSimulate(c.UserContext(), auth.UserID(c))
		if err != nil {
			return trackingError(err)
		}
		return c.JSON(res)
	})
}

func trackingError(err error) error {
	switch {
	case errors.Is(err, ride.ErrInvalidState):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidSample):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrClosed):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
