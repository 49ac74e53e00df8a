package service

import (
	"context"
	"errors"

	"github.com/meech-ward/qr-full-stack/internal/models"
	"github.com/meech-ward/qr-full-stack/internal/repository"
	"github.com/meech-ward/qr-full-stack/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	recentLimit   = 100
	idAttempts    = 5
	maxUserAgent  = 1024
	maxIPAddrSize = 45
)

type QRService struct {
	codes  *repository.QRCodeRepository
	images *repository.QRImageRepository
	uses   *repository.QRUseRepository
	sinks  Sinks
	logger *zap.Logger
}

func NewQRService(
	codes *repository.QRCodeRepository,
	images *repository.QRImageRepository,
	uses *repository.QRUseRepository,
	sinks Sinks,
	logger *zap.Logger,
) *QRService {
	return &QRService{
		codes:  codes,
		images: images,
		uses:   uses,
		sinks:  sinks,
		logger: logger,
	}
}

// Visit is what the redirect endpoint knows about a scan.
type Visit struct {
	IPAddress string
	UserAgent string
	Location  string
	Referer   string
}

// CreateShortURL stores text under a fresh short id. The type is "url" when
// the text looks like something a browser can open.
func (s *QRService) CreateShortURL(ctx context.Context, text string) (*models.QRCode, error) {
	if text == "" {
		return nil, invalidInput("text is required")
	}
	qrType := models.QRTypeText
	if utils.IsLikelyURL(text) {
		qrType = models.QRTypeURL
	}

	id, err := s.freeID(ctx)
	if err != nil {
		return nil, err
	}

	qr := &models.QRCode{ID: id, Content: text, Type: qrType}
	if err := s.codes.Create(ctx, qr); err != nil {
		return nil, err
	}
	s.logger.Info("short url created", zap.String("id", id), zap.String("type", string(qrType)))
	return qr, nil
}

func (s *QRService) freeID(ctx context.Context) (string, error) {
	for i := 0; i < idAttempts; i++ {
		id, err := utils.GenerateShortID(utils.ShortIDLength)
		if err != nil {
			return "", err
		}
		taken, err := s.codes.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

func (s *QRService) ListRecent(ctx context.Context) ([]models.QRCode, error) {
	codes, err := s.codes.ListRecent(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []models.QRCode{}
	}
	return codes, nil
}

func (s *QRService) Get(ctx context.Context, id string) (*models.QRCodeDetail, error) {
	qr, err := s.codes.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	images, err := s.images.GetByQRCodeID(ctx, id)
	if err != nil {
		return nil, err
	}
	scans, err := s.uses.CountByQRID(ctx, id)
	if err != nil {
		return nil, err
	}

	views := make([]models.QRImageView, 0, len(images))
	for _, img := range images {
		url, err := s.sinks.URLFor(ctx, id, img.ImageName)
		if err != nil {
			s.logger.Warn("image url unavailable", zap.String("image", img.ImageName), zap.Error(err))
		}
		views = append(views, models.QRImageView{QRImage: img, URL: url})
	}

	return &models.QRCodeDetail{QRCode: *qr, QRImages: views, ScanCount: scans}, nil
}

// Delete removes the code, its images and scans. Stored files are removed
// after the rows; a file that cannot be removed is logged, not returned.
func (s *QRService) Delete(ctx context.Context, id string) error {
	images, err := s.codes.DeleteCascade(ctx, id)
	if err != nil {
		return notFound(err)
	}

	sink := s.sinks.ForQRCode(id)
	for _, img := range images {
		if err := sink.Delete(ctx, img.ImageName); err != nil {
			s.logger.Warn("failed to delete stored image",
				zap.String("qr_id", id),
				zap.String("image", img.ImageName),
				zap.Error(err),
			)
		}
	}
	s.logger.Info("qr code deleted", zap.String("id", id), zap.Int("images", len(images)))
	return nil
}

// Resolve looks up a short id and records the visit. Failing to record the
// visit does not block the redirect.
func (s *QRService) Resolve(ctx context.Context, id string, visit Visit) (*models.QRCode, error) {
	qr, err := s.codes.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	use := &models.QRUse{
		QRID:      qr.ID,
		UserAgent: truncate(visit.UserAgent, maxUserAgent),
		IPAddress: truncate(visit.IPAddress, maxIPAddrSize),
		Location:  visit.Location,
		Referer:   visit.Referer,
	}
	if err := s.uses.Create(ctx, use); err != nil {
		s.logger.Error("failed to record scan", zap.String("qr_id", qr.ID), zap.Error(err))
	} else {
		s.logger.Info("qr code used", zap.String("qr_id", qr.ID), zap.String("ip", use.IPAddress))
	}
	return qr, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
