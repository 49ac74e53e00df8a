package models

import (
	"time"
)

type QRType string

const (
	QRTypeURL  QRType = "url"
	QRTypeText QRType = "text"
)

// FilterNone marks the plain QR code stored next to its blended variants.
const FilterNone = "none"

type QRCode struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(10)"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Type      QRType    `json:"type" gorm:"type:varchar(4);not null;index:type_idx"`
	CreatedAt time.Time `json:"createdAt"`
	Images    []QRImage `json:"-" gorm:"foreignKey:QRCodeID;constraint:OnDelete:CASCADE"`
	Uses      []QRUse   `json:"-" gorm:"foreignKey:QRID;constraint:OnDelete:CASCADE"`
}

func (QRCode) TableName() string { return "qr_codes" }

// QRImage is one rendered file that belongs to a QR code.
type QRImage struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(10)"`
	QRCodeID  string    `json:"qrCodeId" gorm:"column:qr_code_id;type:varchar(10);not null;index:qr_code_id_idx"`
	ImageName string    `json:"imageName" gorm:"type:text;not null"`
	Filter    string    `json:"filter" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

func (QRImage) TableName() string { return "qr_images" }

// QRUse records one visit of a short URL.
type QRUse struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	QRID      string    `json:"qrId" gorm:"column:qr_id;type:varchar(10);not null;index:qr_id_idx"`
	ScannedAt time.Time `json:"scannedAt" gorm:"autoCreateTime"`
	UserAgent string    `json:"userAgent" gorm:"type:text"`
	IPAddress string    `json:"ipAddress" gorm:"type:varchar(45)"`
	Location  string    `json:"location" gorm:"type:text"`
	Referer   string    `json:"referer" gorm:"type:text"`
}

func (QRUse) TableName() string { return "qr_uses" }
