package models

type ShortURLRequest struct {
	Text string `json:"text" validate:"required,max=2048"`
}

type ShortURLResponse struct {
	ID   string `json:"id"`
	Type QRType `json:"type"`
}

// CreateQRRequest holds the text fields of the multipart upload. The
// qrImage and bgImage files are read separately.
type CreateQRRequest struct {
	ID      string `form:"id" validate:"omitempty,max=10"`
	Save    string `form:"save" validate:"omitempty,oneof=true false"`
	Blend   string `form:"blend" validate:"omitempty,blend"`
	Padding string `form:"padding" validate:"omitempty,numeric,max=6"`
	Text    string `form:"text" validate:"omitempty,max=1273"`
}

// ImageUpload is a file that passed size checks, with its sniffed type.
type ImageUpload struct {
	Data        []byte
	ContentType string `validate:"supported_image"`
}

type FileResult struct {
	Name  string `json:"name"`
	Blend string `json:"blend"`
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

type CreateQRResponse struct {
	ID    string       `json:"id,omitempty"`
	Files []FileResult `json:"files"`
}

type QRImageView struct {
	QRImage
	URL string `json:"url,omitempty"`
}

type QRCodeDetail struct {
	QRCode    QRCode        `json:"qrCode"`
	QRImages  []QRImageView `json:"qrImages"`
	ScanCount int64         `json:"scanCount"`
}

type QRCodeList struct {
	QRCodes []QRCode `json:"qrCodes"`
}

type DeleteQRResponse struct {
	ID string `json:"id"`
}
