package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/meech-ward/qr-full-stack/internal/models"
	"github.com/meech-ward/qr-full-stack/internal/service"
	"github.com/meech-ward/qr-full-stack/pkg/utils"
	"go.uber.org/zap"
)

type ShortURLHandler struct {
	qrService *service.QRService
	logger    *zap.Logger
}

func NewShortURLHandler(qrService *service.QRService, logger *zap.Logger) *ShortURLHandler {
	return &ShortURLHandler{qrService: qrService, logger: logger}
}

// Resolve records the scan, then redirects url codes and prints text codes.
func (h *ShortURLHandler) Resolve(c *fiber.Ctx) error {
	visit := service.Visit{
		IPAddress: clientIP(c),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Location:  firstNonEmpty(c.Get(fiber.HeaderLocation), c.Get(fiber.HeaderOrigin)),
		Referer:   c.Get(fiber.HeaderReferer),
	}

	qr, err := h.qrService.Resolve(c.UserContext(), c.Params("id"), visit)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Not Found")
		}
		h.logger.Error("resolve short url", zap.String("id", c.Params("id")), zap.Error(err))
		return fail(c, err)
	}

	if qr.Type == models.QRTypeURL {
		target := utils.EnsureScheme(qr.Content)
		h.logger.Info("redirecting", zap.String("id", qr.ID), zap.String("to", target))
		return c.Redirect(target, fiber.StatusFound)
	}
	return c.SendString(qr.Content)
}

// clientIP prefers proxy headers over the socket address.
func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
