package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/meech-ward/qr-full-stack/internal/models"
	"github.com/meech-ward/qr-full-stack/internal/service"
	"github.com/meech-ward/qr-full-stack/pkg/compositor"
	"github.com/meech-ward/qr-full-stack/pkg/utils"
	"go.uber.org/zap"
)

type QRHandler struct {
	qrService        *service.QRService
	compositeService *service.CompositeService
	validator        *utils.Validator
	maxUploadSize    int64
	logger           *zap.Logger
}

func NewQRHandler(
	qrService *service.QRService,
	compositeService *service.CompositeService,
	validator *utils.Validator,
	maxUploadSize int64,
	logger *zap.Logger,
) *QRHandler {
	return &QRHandler{
		qrService:        qrService,
		compositeService: compositeService,
		validator:        validator,
		maxUploadSize:    maxUploadSize,
		logger:           logger,
	}
}

func (h *QRHandler) List(c *fiber.Ctx) error {
	codes, err := h.qrService.ListRecent(c.UserContext())
	if err != nil {
		h.logger.Error("list qr codes", zap.Error(err))
		return fail(c, err)
	}
	return c.JSON(models.QRCodeList{QRCodes: codes})
}

func (h *QRHandler) CreateShortURL(c *fiber.Ctx) error {
	var req models.ShortURLRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	qr, err := h.qrService.CreateShortURL(c.UserContext(), req.Text)
	if err != nil {
		h.logger.Error("create short url", zap.Error(err))
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.ShortURLResponse{ID: qr.ID, Type: qr.Type})
}

// Create handles the multipart QR form: an optional id and save flag, an
// optional blend and padding, the QR as a file or as text, and an optional
// background photo.
func (h *QRHandler) Create(c *fiber.Ctx) error {
	var req models.CreateQRRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid form data"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	qrImage, status, err := h.readUpload(c, "qrImage")
	if err != nil {
		return c.Status(status).JSON(models.ErrorResponse(err.Error()))
	}
	bgImage, status, err := h.readUpload(c, "bgImage")
	if err != nil {
		return c.Status(status).JSON(models.ErrorResponse(err.Error()))
	}
	if qrImage == nil && req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("qrImage or text is required"))
	}

	in := service.CompositeInput{
		ID:    req.ID,
		Save:  req.Save == "true",
		Blend: req.Blend,
		Text:  req.Text,
	}
	if qrImage != nil {
		in.QRImage = qrImage.Data
	}
	if bgImage != nil {
		in.Background = bgImage.Data
	}
	if req.Padding != "" {
		p, err := strconv.Atoi(req.Padding)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("padding must be an integer"))
		}
		in.Padding = &p
	}

	resp, err := h.compositeService.Create(c.UserContext(), in)
	if err != nil {
		h.logger.Error("create qr images", zap.String("id", req.ID), zap.Error(err))
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *QRHandler) Get(c *fiber.Ctx) error {
	detail, err := h.qrService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			h.logger.Error("get qr code", zap.String("id", c.Params("id")), zap.Error(err))
		}
		return fail(c, err)
	}
	return c.JSON(detail)
}

func (h *QRHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.qrService.Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(models.SuccessResponse(models.DeleteQRResponse{ID: id}, "QR code deleted"))
}

// readUpload returns nil when the form has no file under field.
func (h *QRHandler) readUpload(c *fiber.Ctx, field string) (*models.ImageUpload, int, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fiber.StatusBadRequest, fiber.NewError(fiber.StatusBadRequest, "Invalid multipart form")
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, 0, nil
	}
	fh := files[0]
	if fh.Size > h.maxUploadSize {
		return nil, fiber.StatusRequestEntityTooLarge, fiber.NewError(fiber.StatusRequestEntityTooLarge, field+" is too large")
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fiber.StatusBadRequest, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fiber.StatusBadRequest, err
	}
	if len(data) == 0 {
		return nil, fiber.StatusBadRequest, fiber.NewError(fiber.StatusBadRequest, field+" is empty")
	}

	upload := &models.ImageUpload{Data: data, ContentType: compositor.DetectContentType(data)}
	if err := h.validator.Struct(upload); err != nil {
		return nil, fiber.StatusUnsupportedMediaType, fiber.NewError(fiber.StatusUnsupportedMediaType, field+" must be a JPEG, PNG, GIF, WEBP, BMP or SVG image")
	}
	return upload, 0, nil
}
