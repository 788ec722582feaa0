package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/garyjia/procuro/internal/domain/entity"
)

// documentName is the storage key of a request's attached PDF
func documentName(id int64) string {
	return fmt.Sprintf("%d.pdf", id)
}

// AttachDocument stores a PDF for a request, replacing any previous one. With
// extract set the document is also run through the extractor and merged; an
// extraction failure leaves the attachment in place and is reported as a warning.
func (s *procurementServiceImpl) AttachDocument(ctx context.Context, id int64, filename string, content []byte, extract bool) (*Result, error) {
	var fields []entity.FieldError
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		fields = append(fields, entity.FieldError{Field: "file", Message: "only PDF files are accepted"})
	}
	if len(content) == 0 {
		fields = append(fields, entity.FieldError{Field: "file", Message: "is empty"})
	}
	if len(fields) > 0 {
		return nil, &entity.ValidationError{Fields: fields}
	}
	if s.storage == nil {
		return nil, fmt.Errorf("attach document: no storage configured")
	}

	result, err := s.attach(ctx, id, content)
	if err != nil {
		return nil, err
	}
	if !extract {
		return result, nil
	}

	draft, err := s.ExtractDocument(ctx, content)
	if err != nil {
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarningExtractionFailed,
			Field:   "file",
			Message: err.Error(),
		})
		return result, nil
	}

	merged, err := s.MergeExtraction(ctx, id, *draft)
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *procurementServiceImpl) attach(ctx context.Context, id int64, content []byte) (*Result, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("request %d: %w", id, entity.ErrNotFound)
	}

	name := documentName(id)
	if err := s.storage.Save(ctx, name, content); err != nil {
		s.logger.Error("Failed to store document", "error", err, "id", id)
		return nil, fmt.Errorf("store document: %w", err)
	}

	req, err := s.repo.Update(ctx, id, func(req *entity.ProcurementRequest) error {
		req.PDFFilename = entity.StringPtr(name)
		req.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, s.wrap("attach document", id, err)
	}

	s.logger.Info("Document attached", "id", id, "file", name, "size", len(content))
	return s.result(req, nil), nil
}

// GetDocument returns the attached PDF's file name and content
func (s *procurementServiceImpl) GetDocument(ctx context.Context, id int64) (string, []byte, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if req.PDFFilename == nil || s.storage == nil || !s.storage.Exists(ctx, *req.PDFFilename) {
		return "", nil, fmt.Errorf("request %d: %w", id, entity.ErrNoDocument)
	}

	content, err := s.storage.Read(ctx, *req.PDFFilename)
	if err != nil {
		s.logger.Error("Failed to read document", "error", err, "id", id)
		return "", nil, fmt.Errorf("read document: %w", err)
	}
	return *req.PDFFilename, content, nil
}

// RemoveDocument detaches and deletes a request's PDF
func (s *procurementServiceImpl) RemoveDocument(ctx context.Context, id int64) (*Result, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var name string
	req, err := s.repo.Update(ctx, id, func(req *entity.ProcurementRequest) error {
		if req.PDFFilename == nil {
			return entity.ErrNoDocument
		}
		name = *req.PDFFilename
		req.PDFFilename = nil
		req.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, s.wrap("remove document", id, err)
	}

	if s.storage != nil {
		if err := s.storage.Delete(ctx, name); err != nil {
			s.logger.Error("Failed to delete document", "error", err, "id", id, "file", name)
		}
	}

	s.logger.Info("Document removed", "id", id)
	return s.result(req, nil), nil
}
