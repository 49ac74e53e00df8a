package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meech-ward/qr-full-stack/internal/models"
	"github.com/meech-ward/qr-full-stack/internal/service"
	"github.com/meech-ward/qr-full-stack/pkg/workqueue"
)

// fail maps service errors onto status codes.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse("QR code not found"))
	case errors.Is(err, service.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	case errors.Is(err, workqueue.ErrClosed):
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse("server is shutting down"))
	}
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse("internal server error"))
}
