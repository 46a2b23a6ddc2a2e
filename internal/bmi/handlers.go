package bmi

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/calculate", func(c *fiber.Ctx) error {
		height, _ := strconv.ParseFloat(c.Query("height_cm"), 64)
		weight, _ := strconv.ParseFloat(c.Query("weight_kg"), 64)
		value, err := Calculate(height, weight)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"bmi": value, "category": Category(value)})
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req RecordRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		rec, err := svc.Record(c.Context(), userID(c), req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit"))
		records, err := svc.History(c.Context(), userID(c), limit)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(records)
	})

	r.Get("/latest", authMiddleware, func(c *fiber.Ctx) error {
		rec, err := svc.Latest(c.Context(), userID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(rec)
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidMeasurement):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoRecords):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
