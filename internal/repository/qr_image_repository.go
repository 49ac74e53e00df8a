package repository

import (
	"context"

	"github.com/meech-ward/qr-full-stack/internal/models"
	"gorm.io/gorm"
)

type QRImageRepository struct {
	db *gorm.DB
}

func NewQRImageRepository(db *gorm.DB) *QRImageRepository {
	return &QRImageRepository{db: db}
}

func (r *QRImageRepository) Create(ctx context.Context, image *models.QRImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *QRImageRepository) GetByQRCodeID(ctx context.Context, qrCodeID string) ([]models.QRImage, error) {
	var images []models.QRImage
	err := r.db.WithContext(ctx).
		Where("qr_code_id = ?", qrCodeID).
		Order("created_at ASC").
		Find(&images).Error
	return images, err
}
