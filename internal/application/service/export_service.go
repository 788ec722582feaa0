package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/procuro/internal/application/port"
)

// Export is a rendered request overview ready for download
type Export struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders filtered request lists into files
type ExportService interface {
	ExportRequests(ctx context.Context, filter port.RequestFilter) (*Export, error)
}

type exportServiceImpl struct {
	requests ProcurementService
	exporter port.Exporter
	now      func() time.Time
	logger   Logger
}

// NewExportService creates a new ExportService
func NewExportService(requests ProcurementService, exporter port.Exporter, logger Logger) ExportService {
	return &exportServiceImpl{
		requests: requests,
		exporter: exporter,
		now:      time.Now,
		logger:   logger,
	}
}

// ExportRequests renders every request matching the filter
func (s *exportServiceImpl) ExportRequests(ctx context.Context, filter port.RequestFilter) (*Export, error) {
	requests, err := s.requests.ListRequests(ctx, filter)
	if err != nil {
		return nil, err
	}

	content, err := s.exporter.Export(ctx, requests)
	if err != nil {
		s.logger.Error("Failed to export requests", "error", err, "count", len(requests))
		return nil, fmt.Errorf("export requests: %w", err)
	}

	s.logger.Info("Requests exported", "count", len(requests), "size", len(content))
	return &Export{
		Filename:    fmt.Sprintf("procurement-requests-%s%s", s.now().UTC().Format("20060102-150405"), s.exporter.FileExtension()),
		ContentType: s.exporter.ContentType(),
		Content:     content,
	}, nil
}
