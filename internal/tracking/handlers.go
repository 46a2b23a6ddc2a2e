package tracking

import (
	"errors"

	"backend-bodytune/internal/location"
	"backend-bodytune/internal/run"
	"backend-bodytune/internal/timer"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req StartRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.UserID = userID(c)
		state, err := svc.Start(c.Context(), req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(state)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		uid := c.Query("user_id", userID(c))
		if uid != userID(c) {
			return fiber.NewError(fiber.StatusForbidden, "cannot list another user's runs")
		}
		sessions, err := svc.History(c.Context(), uid)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if sessions == nil {
			sessions = []run.RunningSession{}
		}
		return c.JSON(sessions)
	})

	r.Post("/:id/fixes", authMiddleware, func(c *fiber.Ctx) error {
		var req FixRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res, err := svc.PushFix(c.Params("id"), userID(c), run.RoutePoint{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Elevation: req.Elevation,
			Timestamp: req.Timestamp,
		})
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(res)
	})

	r.Post("/:id/location-error", authMiddleware, func(c *fiber.Ctx) error {
		var req LocationErrorRequest
		if err := c.BodyParser(&req); err != nil || req.Message == "" {
			return fiber.NewError(fiber.StatusBadRequest, "message required")
		}
		if err := svc.ReportLocationError(c.Params("id"), userID(c), req.Message); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/pause", authMiddleware, func(c *fiber.Ctx) error {
		return respond(c)(svc.Pause(c.Params("id"), userID(c)))
	})

	r.Post("/:id/resume", authMiddleware, func(c *fiber.Ctx) error {
		return respond(c)(svc.Resume(c.Params("id"), userID(c)))
	})

	r.Post("/:id/restart", authMiddleware, func(c *fiber.Ctx) error {
		return respond(c)(svc.Restart(c.Params("id"), userID(c)))
	})

	r.Post("/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		res, err := svc.Stop(c.Context(), c.Params("id"), userID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(res)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		return respond(c)(svc.State(c.Params("id"), userID(c)))
	})

	r.Get("/:id/route", authMiddleware, func(c *fiber.Ctx) error {
		route, err := svc.Route(c.Params("id"), userID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(route)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Discard(c.Params("id"), userID(c)); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func respond(c *fiber.Ctx) func(LiveState, error) error {
	return func(state LiveState, err error) error {
		if err != nil {
			return httpError(err)
		}
		return c.JSON(state)
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, location.ErrPermissionDenied):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, location.ErrProviderUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, timer.ErrInvalidTransition),
		errors.Is(err, location.ErrNotTracking),
		errors.Is(err, ErrRunActive):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
