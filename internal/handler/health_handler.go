package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meech-ward/qr-full-stack/pkg/workqueue"
)

type HealthHandler struct {
	queue *workqueue.Queue
}

func NewHealthHandler(queue *workqueue.Queue) *HealthHandler {
	return &HealthHandler{queue: queue}
}

// Health reports liveness plus how much compositing work is backed up.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"queue": fiber.Map{
			"pending": h.queue.Len(),
			"running": h.queue.Running(),
		},
	})
}
