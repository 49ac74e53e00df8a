package repository

import (
	"context"

	"github.com/meech-ward/qr-full-stack/internal/models"
	"gorm.io/gorm"
)

type QRCodeRepository struct {
	db *gorm.DB
}

func NewQRCodeRepository(db *gorm.DB) *QRCodeRepository {
	return &QRCodeRepository{db: db}
}

func (r *QRCodeRepository) Create(ctx context.Context, qr *models.QRCode) error {
	return r.db.WithContext(ctx).Create(qr).Error
}

func (r *QRCodeRepository) GetByID(ctx context.Context, id string) (*models.QRCode, error) {
	var qr models.QRCode
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&qr).Error
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

func (r *QRCodeRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QRCode{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// ListRecent returns the newest codes first.
func (r *QRCodeRepository) ListRecent(ctx context.Context, limit int) ([]models.QRCode, error) {
	var codes []models.QRCode
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&codes).Error
	return codes, err
}

// DeleteCascade removes a code with its images and scan records in one
// transaction and returns the image rows that were removed so their files
// can be cleaned up. gorm.ErrRecordNotFound is returned for unknown ids.
func (r *QRCodeRepository) DeleteCascade(ctx context.Context, id string) ([]models.QRImage, error) {
	var images []models.QRImage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var qr models.QRCode
		if err := tx.Where("id = ?", id).First(&qr).Error; err != nil {
			return err
		}
		if err := tx.Where("qr_code_id = ?", id).Find(&images).Error; err != nil {
			return err
		}
		if err := tx.Where("qr_code_id = ?", id).Delete(&models.QRImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("qr_id = ?", id).Delete(&models.QRUse{}).Error; err != nil {
			return err
		}
		return tx.Delete(&qr).Error
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}
