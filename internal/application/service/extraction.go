package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/merge"
	"github.com/garyjia/procuro/pkg/utils"
)

// MergeExtraction folds an extraction draft into a stored request. When the
// extraction replaces the order lines the classifier runs first; its failure
// keeps the previous commodity group and is reported as a warning.
func (s *procurementServiceImpl) MergeExtraction(ctx context.Context, id int64, extracted entity.ExtractionDraft) (*Result, error) {
	rules, err := s.rulesFor(ctx)
	if err != nil {
		return nil, err
	}

	extracted.OrderLines = s.normalizeLines(extracted.OrderLines)

	var warnings []Warning
	var classification *port.Classification
	if text := merge.ClassificationText(extracted.OrderLines); len(extracted.OrderLines) > 0 && text != "" {
		c, err := s.classify(ctx, text, rules)
		if err != nil {
			warnings = append(warnings, Warning{
				Code:    WarningClassificationFailed,
				Field:   "commodity_group_id",
				Message: err.Error(),
			})
		} else {
			classification = c
		}
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var advisories []entity.FieldError
	req, err := s.repo.Update(ctx, id, func(req *entity.ProcurementRequest) error {
		res := merge.Resolve(req.Draft(), extracted)
		if res.NeedsClassification && classification != nil {
			res.Draft.CommodityGroupID = entity.StringPtr(classification.CommodityGroupID)
		}

		candidate := req.Clone()
		candidate.ApplyDraft(res.Draft, s.now().UTC())

		adv, err := rules.Validate(candidate)
		if err != nil {
			return err
		}
		advisories = adv
		*req = *candidate
		return nil
	})
	if err != nil {
		return nil, s.wrap("merge extraction", id, err)
	}

	s.logger.Info("Extraction merged", "id", id, "lines", len(req.OrderLines), "commodity_group_id", req.CommodityGroupID)
	return s.result(req, append(warnings, advisoryWarnings(advisories)...)), nil
}

// ExtractDocument runs the extractor without touching any request
func (s *procurementServiceImpl) ExtractDocument(ctx context.Context, document []byte) (*entity.ExtractionDraft, error) {
	if len(document) == 0 {
		return nil, &entity.ValidationError{Fields: []entity.FieldError{{Field: "file", Message: "is empty"}}}
	}
	if s.extractor == nil {
		return nil, fmt.Errorf("%w: no extractor configured", entity.ErrExtractionFailed)
	}

	ctx, cancel := withTimeout(ctx, s.extractionTimeout)
	defer cancel()

	draft, err := s.extractor.Extract(ctx, document)
	if err != nil {
		s.metrics.CollaboratorFailed("extractor")
		s.logger.Error("Document extraction failed", "error", err, "size", len(document))
		return nil, fmt.Errorf("%w: %v", entity.ErrExtractionFailed, err)
	}

	draft.OrderLines = s.normalizeLines(draft.OrderLines)
	s.logger.Info("Document extracted", "lines", len(draft.OrderLines))
	return draft, nil
}

// ClassifyText maps free text to a known commodity group
func (s *procurementServiceImpl) ClassifyText(ctx context.Context, text string) (*port.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &entity.ValidationError{Fields: []entity.FieldError{{Field: "text", Message: "is required"}}}
	}

	rules, err := s.rulesFor(ctx)
	if err != nil {
		return nil, err
	}
	return s.classify(ctx, text, rules)
}

// ListCommodityGroups returns the reference data in catalog order
func (s *procurementServiceImpl) ListCommodityGroups(ctx context.Context) ([]entity.CommodityGroup, error) {
	if s.catalog == nil {
		return []entity.CommodityGroup{}, nil
	}
	groups, err := s.catalog.ListCommodityGroups(ctx)
	if err != nil {
		s.logger.Error("Failed to list commodity groups", "error", err)
		return nil, fmt.Errorf("list commodity groups: %w", err)
	}
	return groups, nil
}

func (s *procurementServiceImpl) classify(ctx context.Context, text string, rules entity.Rules) (*port.Classification, error) {
	if s.classifier == nil {
		return nil, fmt.Errorf("%w: no classifier configured", entity.ErrClassificationFailed)
	}

	ctx, cancel := withTimeout(ctx, s.classifyTimeout)
	defer cancel()

	c, err := s.classifier.Classify(ctx, text)
	if err == nil && c == nil {
		err = errors.New("empty classification")
	}
	if err == nil && rules.KnownCommodity != nil && !rules.KnownCommodity(c.CommodityGroupID) {
		err = fmt.Errorf("unknown commodity group %q", c.CommodityGroupID)
	}
	if err != nil {
		s.metrics.CollaboratorFailed("classifier")
		s.logger.Error("Classification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", entity.ErrClassificationFailed, err)
	}

	return c, nil
}

// normalizeLines cleans descriptions, maps units onto the configured set and clamps quantities to at least one
func (s *procurementServiceImpl) normalizeLines(lines []entity.OrderLine) []entity.OrderLine {
	out := make([]entity.OrderLine, len(lines))
	for i, l := range lines {
		l.Description = utils.SanitizeString(l.Description)
		if !s.rules.Units.Contains(l.Unit) {
			l.Unit = s.rules.Units.Normalize(string(l.Unit))
		}
		if l.Quantity < 1 {
			l.Quantity = 1
		}
		out[i] = l
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
