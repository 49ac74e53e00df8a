package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/meech-ward/qr-full-stack/internal/models"
	"github.com/meech-ward/qr-full-stack/internal/repository"
	"github.com/meech-ward/qr-full-stack/pkg/compositor"
	"github.com/meech-ward/qr-full-stack/pkg/qrcode"
	"github.com/meech-ward/qr-full-stack/pkg/storage"
	"github.com/meech-ward/qr-full-stack/pkg/utils"
	"github.com/meech-ward/qr-full-stack/pkg/workqueue"
	"go.uber.org/zap"
)

// CompositeInput is one upload from the QR form.
type CompositeInput struct {
	// ID links the output to a stored QR code. Required for Save.
	ID   string
	Save bool
	// Blend limits the run to one mode; empty renders every user blend.
	Blend string
	// Padding overrides the configured quiet zone when non-nil.
	Padding    *int
	QRImage    []byte
	Text       string
	Background []byte
}

type CompositeService struct {
	compositor *compositor.Compositor
	queue      *workqueue.Queue
	encoder    *qrcode.Encoder
	codes      *repository.QRCodeRepository
	images     *repository.QRImageRepository
	sinks      Sinks
	padding    int
	logger     *zap.Logger
}

func NewCompositeService(
	c *compositor.Compositor,
	queue *workqueue.Queue,
	encoder *qrcode.Encoder,
	codes *repository.QRCodeRepository,
	images *repository.QRImageRepository,
	sinks Sinks,
	padding int,
	logger *zap.Logger,
) *CompositeService {
	return &CompositeService{
		compositor: c,
		queue:      queue,
		encoder:    encoder,
		codes:      codes,
		images:     images,
		sinks:      sinks,
		padding:    padding,
		logger:     logger,
	}
}

// Create stores the plain QR code when saving, then renders every requested
// blend through the work queue. A blend that fails is reported on its file
// entry and the remaining blends still run.
func (s *CompositeService) Create(ctx context.Context, in CompositeInput) (*models.CreateQRResponse, error) {
	blends, err := s.blendsFor(in.Blend)
	if err != nil {
		return nil, err
	}

	qr := in.QRImage
	if len(qr) == 0 {
		if in.Text == "" {
			return nil, invalidInput("qrImage or text is required")
		}
		if qr, err = s.encoder.Encode(in.Text); err != nil {
			return nil, invalidInput("%v", err)
		}
	}

	padding := s.padding
	if in.Padding != nil {
		padding = *in.Padding
	}
	// Reject oversized work before anything is stored or queued.
	if err := s.compositor.CheckLimits(qr, in.Background, padding); err != nil {
		return nil, invalidInput("%v", err)
	}

	save := in.Save && in.ID != ""
	if save {
		exists, err := s.codes.Exists(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
	}

	var sink storage.Sink = s.sinks.Preview
	if save {
		sink = s.sinks.ForQRCode(in.ID)
	}

	resp := &models.CreateQRResponse{ID: in.ID, Files: []models.FileResult{}}

	if save {
		name, err := utils.GenerateHexName(utils.HexNameLength)
		if err != nil {
			return nil, err
		}
		detected := mimetype.Detect(qr)
		file, err := s.store(ctx, sink, in.ID, storage.Object{
			Buffer:      qr,
			Name:        name + detected.Extension(),
			Blend:       models.FilterNone,
			ContentType: detected.String(),
		})
		if err != nil {
			return nil, err
		}
		resp.Files = append(resp.Files, file)
	}

	if len(in.Background) == 0 {
		return resp, nil
	}

	format := s.compositor.Format()

	for _, mode := range blends {
		name, err := utils.GenerateHexName(utils.HexNameLength)
		if err != nil {
			return nil, err
		}
		name += format.Extension()

		mode := mode
		out, err := s.queue.Do(ctx, func() ([]byte, error) {
			return s.compositor.Composite(ctx, qr, in.Background, mode, padding)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, workqueue.ErrClosed) {
				return nil, err
			}
			s.logger.Warn("blend failed", zap.String("blend", mode.String()), zap.Error(err))
			resp.Files = append(resp.Files, models.FileResult{Name: name, Blend: mode.String(), Error: err.Error()})
			continue
		}

		obj := storage.Object{Buffer: out, Name: name, Blend: mode.String(), ContentType: format.ContentType()}
		file, err := s.store(ctx, sink, idIfSaved(save, in.ID), obj)
		if err != nil {
			s.logger.Warn("storing blend failed", zap.String("blend", mode.String()), zap.Error(err))
			resp.Files = append(resp.Files, models.FileResult{Name: name, Blend: mode.String(), Error: err.Error()})
			continue
		}
		resp.Files = append(resp.Files, file)
	}

	return resp, nil
}

// store writes obj to sink and, when qrID is set, records the image row.
func (s *CompositeService) store(ctx context.Context, sink storage.Sink, qrID string, obj storage.Object) (models.FileResult, error) {
	details, err := sink.Store(ctx, obj)
	if err != nil {
		return models.FileResult{}, fmt.Errorf("failed to store %s: %w", obj.Name, err)
	}
	if qrID != "" {
		imageID, err := utils.GenerateShortID(utils.ShortIDLength)
		if err != nil {
			return models.FileResult{}, err
		}
		row := &models.QRImage{ID: imageID, QRCodeID: qrID, ImageName: obj.Name, Filter: obj.Blend}
		if err := s.images.Create(ctx, row); err != nil {
			_ = sink.Delete(ctx, obj.Name)
			return models.FileResult{}, fmt.Errorf("failed to save image record: %w", err)
		}
		s.logger.Info("saved image",
			zap.String("qr_id", qrID),
			zap.String("blend", obj.Blend),
			zap.String("name", obj.Name),
			zap.String("url", details.URL),
		)
	}
	return models.FileResult{Name: details.Name, Blend: details.Blend, URL: details.URL}, nil
}

func (s *CompositeService) blendsFor(requested string) ([]compositor.BlendMode, error) {
	if requested == "" {
		return compositor.Blends(), nil
	}
	mode, err := compositor.ParseBlend(requested)
	if err != nil || !compositor.IsUserBlend(mode) {
		return nil, invalidInput("unknown blend %q", requested)
	}
	return []compositor.BlendMode{mode}, nil
}

func idIfSaved(save bool, id string) string {
	if save {
		return id
	}
	return ""
}
