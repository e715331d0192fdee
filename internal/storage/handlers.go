package storage

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/*", func(c *fiber.Ctx) error {
		full, err := svc.Open(c.Params("*"))
		if errors.Is(err, ErrInvalidPath) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if errors.Is(err, os.ErrNotExist) {
			return fiber.NewError(fiber.StatusNotFound, "object not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendFile(full)
	})
}
