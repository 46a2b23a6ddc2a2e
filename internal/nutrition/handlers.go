package nutrition

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/meals", authMiddleware, func(c *fiber.Ctx) error {
		var req MealRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		entry, err := svc.AddMeal(c.Context(), userID(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	r.Get("/meals", authMiddleware, func(c *fiber.Ctx) error {
		entries, err := svc.Meals(c.Context(), userID(c), c.Query("date"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(entries)
	})

	r.Delete("/meals/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteMeal(c.Context(), userID(c), c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/daily", authMiddleware, func(c *fiber.Ctx) error {
		daily, err := svc.Daily(c.Context(), userID(c), c.Query("date"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(daily)
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidMeal), errors.Is(err, ErrInvalidDate):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrMealNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
