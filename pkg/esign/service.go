package esign

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-boarding/pkg/gateway"
)

// Attacher uploads documents to a created application.
type Attacher interface {
	AttachFiles(ctx context.Context, appID string, attachments []gateway.Attachment) error
}

// Service renders, rasterizes and attaches signed agreements.
type Service struct {
	agreement *Agreement
	attacher  Attacher
	logger    zerolog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(agreement *Agreement, attacher Attacher, opts ...ServiceOption) *Service {
	s := &Service{agreement: agreement, attacher: attacher, logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Agreement() *Agreement { return s.agreement }

// Document renders the agreement pages and the PDF for sig.
func (s *Service) Document(record map[string]any, sig Signature) ([]Page, []byte, error) {
	pages, err := s.agreement.Pages(record, sig)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := RenderPDF(pages, s.agreement.Branding(), sig.SignedAt)
	if err != nil {
		return nil, nil, err
	}
	return pages, pdf, nil
}

// Finalizer returns the Flow finalizer for application appID. The signed PDF
// is attached together with proofs in a single call, after rendering has
// succeeded.
func (s *Service) Finalizer(appID string, record map[string]any, proofs []gateway.Attachment) Finalizer {
	return func(ctx context.Context, sig Signature) ([]byte, error) {
		_, pdf, err := s.Document(record, sig)
		if err != nil {
			s.logger.Error().Err(err).Str("app_id", appID).Msg("agreement rendering failed")
			return nil, err
		}
		if s.attacher == nil {
			return pdf, nil
		}
		attachments := append([]gateway.Attachment{
			gateway.PDFAttachment(base64.StdEncoding.EncodeToString(pdf)),
		}, proofs...)
		if err := s.attacher.AttachFiles(ctx, appID, attachments); err != nil {
			s.logger.Error().Err(err).Str("app_id", appID).Int("attachments", len(attachments)).Msg("attaching agreement failed")
			return nil, fmt.Errorf("esign: attach agreement: %w", err)
		}
		s.logger.Info().Str("app_id", appID).Int("attachments", len(attachments)).Msg("agreement attached")
		return pdf, nil
	}
}
