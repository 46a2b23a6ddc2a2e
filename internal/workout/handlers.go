package workout

import (
	"errors"

	"backend-bodytune/internal/store"
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
		state, err := svc.Start(req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(state)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		uid := c.Query("user_id", userID(c))
		if uid != userID(c) {
			return fiber.NewError(fiber.StatusForbidden, "cannot list another user's workouts")
		}
		sessions, err := svc.History(c.Context(), uid)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if sessions == nil {
			sessions = []store.WorkoutSession{}
		}
		return c.JSON(sessions)
	})

	controls := map[string]func(id, userID string) (LiveState, error){
		"pause":    svc.Pause,
		"resume":   svc.Resume,
		"next":     svc.Next,
		"skip":     svc.Skip,
		"previous": svc.Previous,
		"finish":   svc.Finish,
		"restart":  svc.Restart,
	}
	for action, fn := range controls {
		fn := fn
		r.Post("/:id/"+action, authMiddleware, func(c *fiber.Ctx) error {
			state, err := fn(c.Params("id"), userID(c))
			if err != nil {
				return httpError(err)
			}
			return c.JSON(state)
		})
	}

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		state, err := svc.State(c.Params("id"), userID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(state)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Discard(c.Params("id"), userID(c)); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrWorkoutNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrWorkoutActive), errors.Is(err, timer.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
