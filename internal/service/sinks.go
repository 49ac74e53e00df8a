package service

import (
	"context"
	"time"

	"github.com/meech-ward/qr-full-stack/pkg/storage"
)

const (
	qrCodeFolder  = "qr-codes"
	previewFolder = "tmp"
)

type signer interface {
	SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error)
}

// Sinks picks where rendered images go. Persistent is S3 when a bucket is
// configured and the local uploads directory otherwise.
type Sinks struct {
	Persistent   storage.FolderSink
	Preview      storage.Sink
	SignedURLTTL time.Duration
}

// ForQRCode scopes the persistent sink to the folder of one code. An empty
// id maps to the shared tmp folder.
func (s Sinks) ForQRCode(id string) storage.Sink {
	if id == "" {
		return s.Persistent.WithFolder(previewFolder)
	}
	return s.Persistent.WithFolder(qrCodeFolder + "/" + id)
}

// URLFor returns a link to a stored image, presigned when the sink supports
// it and a TTL is configured.
func (s Sinks) URLFor(ctx context.Context, qrID, name string) (string, error) {
	sink := s.ForQRCode(qrID)
	if sg, ok := sink.(signer); ok && s.SignedURLTTL > 0 {
		return sg.SignedURL(ctx, name, s.SignedURLTTL)
	}
	return sink.URL(name), nil
}
