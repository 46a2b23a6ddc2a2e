package daily

import (
	"errors"

	"backend-bodytune/internal/nutrition"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		sum, err := svc.Summary(c.Context(), userID, c.Query("date"))
		if err != nil {
			if errors.Is(err, nutrition.ErrInvalidDate) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(sum)
	})
}
