package repository

import (
	"context"

	"github.com/meech-ward/qr-full-stack/internal/models"
	"gorm.io/gorm"
)

type QRUseRepository struct {
	db *gorm.DB
}

func NewQRUseRepository(db *gorm.DB) *QRUseRepository {
	return &QRUseRepository{db: db}
}

func (r *QRUseRepository) Create(ctx context.Context, use *models.QRUse) error {
	return r.db.WithContext(ctx).Create(use).Error
}

func (r *QRUseRepository) CountByQRID(ctx context.Context, qrID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QRUse{}).Where("qr_id = ?", qrID).Count(&count).Error
	return count, err
}
