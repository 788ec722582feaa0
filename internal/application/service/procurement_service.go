package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/reconcile"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Warning codes reported alongside a successful operation
const (
	WarningClassificationFailed = "classification_failed"
	WarningExtractionFailed     = "extraction_failed"
	WarningNotificationFailed   = "notification_failed"
	WarningVATFormat            = "vat_id_format"
	WarningPriceMismatch        = "price_mismatch"
	WarningTotalMismatch        = "total_mismatch"
)

// Warning is a non-fatal notice about an otherwise successful operation
type Warning struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result is a saved aggregate plus the notices produced while saving it
type Result struct {
	Request  *entity.ProcurementRequest `json:"request"`
	Warnings []Warning                  `json:"warnings"`
}

// ProcurementService is the public surface of the procurement core
type ProcurementService interface {
	CreateRequest(ctx context.Context, draft entity.RequestDraft) (*Result, error)
	UpdateRequest(ctx context.Context, id int64, draft entity.RequestDraft) (*Result, error)
	ChangeStatus(ctx context.Context, id int64, status workflow.Status, actor string) (*Result, error)
	DeleteRequest(ctx context.Context, id int64) error
	GetRequest(ctx context.Context, id int64) (*entity.ProcurementRequest, error)
	ListRequests(ctx context.Context, filter port.RequestFilter) ([]*entity.ProcurementRequest, error)
	Reconcile(ctx context.Context, id int64) (*reconcile.Report, error)

	MergeExtraction(ctx context.Context, id int64, extracted entity.ExtractionDraft) (*Result, error)
	ExtractDocument(ctx context.Context, document []byte) (*entity.ExtractionDraft, error)
	ClassifyText(ctx context.Context, text string) (*port.Classification, error)
	ListCommodityGroups(ctx context.Context) ([]entity.CommodityGroup, error)

	AttachDocument(ctx context.Context, id int64, filename string, content []byte, extract bool) (*Result, error)
	GetDocument(ctx context.Context, id int64) (string, []byte, error)
	RemoveDocument(ctx context.Context, id int64) (*Result, error)

	// NextStatuses lists the statuses a request in the given status may move to
	NextStatuses(current workflow.Status) []workflow.Status
}

// Dependencies are the collaborators of the procurement service.
// Extractor, Classifier, Notifier and Metrics may be nil.
type Dependencies struct {
	Repository port.RequestRepository
	Catalog    port.CommodityCatalog
	Extractor  port.Extractor
	Classifier port.Classifier
	Storage    port.FileStorage
	Notifier   port.StatusNotifier
	Metrics    port.Metrics
	Logger     Logger
}

// Options tune validation, the transition policy and collaborator timeouts
type Options struct {
	Rules             entity.Rules
	Policy            workflow.Policy
	Now               func() time.Time
	ExtractionTimeout time.Duration
	ClassifyTimeout   time.Duration
}

// DefaultOptions returns strict validation, the permissive policy and the wall clock
func DefaultOptions() Options {
	return Options{
		Rules:             entity.DefaultRules(),
		Policy:            workflow.Permissive(),
		Now:               time.Now,
		ExtractionTimeout: 2 * time.Minute,
		ClassifyTimeout:   30 * time.Second,
	}
}

type procurementServiceImpl struct {
	repo       port.RequestRepository
	catalog    port.CommodityCatalog
	extractor  port.Extractor
	classifier port.Classifier
	storage    port.FileStorage
	notifier   port.StatusNotifier
	metrics    port.Metrics
	logger     Logger

	rules             entity.Rules
	engine            *workflow.Engine
	now               func() time.Time
	extractionTimeout time.Duration
	classifyTimeout   time.Duration

	locks *keyedMutex
}

// NewProcurementService creates a new ProcurementService
func NewProcurementService(deps Dependencies, opts Options) ProcurementService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if !opts.Rules.VATPolicy.IsValid() {
		opts.Rules.VATPolicy = entity.VATPolicyStrict
	}

	return &procurementServiceImpl{
		repo:              deps.Repository,
		catalog:           deps.Catalog,
		extractor:         deps.Extractor,
		classifier:        deps.Classifier,
		storage:           deps.Storage,
		notifier:          deps.Notifier,
		metrics:           deps.Metrics,
		logger:            deps.Logger,
		rules:             opts.Rules,
		engine:            workflow.NewEngine(opts.Policy),
		now:               opts.Now,
		extractionTimeout: opts.ExtractionTimeout,
		classifyTimeout:   opts.ClassifyTimeout,
		locks:             newKeyedMutex(),
	}
}

// CreateRequest validates a draft and stores it as a new Open request
func (s *procurementServiceImpl) CreateRequest(ctx context.Context, draft entity.RequestDraft) (*Result, error) {
	rules, err := s.rulesFor(ctx)
	if err != nil {
		return nil, err
	}

	req := entity.NewProcurementRequest(draft, s.now().UTC())
	advisories, err := rules.Validate(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create request", "error", err)
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.metrics.RequestCreated(req.Currency.String())
	s.logger.Info("Request created", "id", req.ID, "title", req.Title)

	return s.result(req, advisoryWarnings(advisories)), nil
}

// UpdateRequest applies a partial draft. Status is never changed here.
func (s *procurementServiceImpl) UpdateRequest(ctx context.Context, id int64, draft entity.RequestDraft) (*Result, error) {
	rules, err := s.rulesFor(ctx)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var advisories []entity.FieldError
	req, err := s.repo.Update(ctx, id, func(req *entity.ProcurementRequest) error {
		candidate := req.Clone()
		candidate.ApplyDraft(draft, s.now().UTC())

		adv, err := rules.Validate(candidate)
		if err != nil {
			return err
		}
		advisories = adv
		*req = *candidate
		return nil
	})
	if err != nil {
		return nil, s.wrap("update request", id, err)
	}

	s.logger.Info("Request updated", "id", id)
	return s.result(req, advisoryWarnings(advisories)), nil
}

// ChangeStatus moves a request through the lifecycle engine. A same-status
// change is accepted without writing a history entry.
func (s *procurementServiceImpl) ChangeStatus(ctx context.Context, id int64, status workflow.Status, actor string) (*Result, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidStatus, status)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var transition workflow.Transition
	req, err := s.repo.Update(ctx, id, func(req *entity.ProcurementRequest) error {
		tr, err := req.ChangeStatus(ctx, s.engine, status, actor, s.now().UTC())
		if err != nil {
			return err
		}
		transition = tr
		return nil
	})
	if err != nil {
		return nil, s.wrap("change status", id, err)
	}

	var warnings []Warning
	if transition.Changed {
		s.metrics.StatusChanged(transition.From, transition.To)
		s.logger.Info("Status changed", "id", id, "from", transition.From, "to", transition.To, "by", transition.ChangedBy)

		change := port.StatusChange{
			RequestID:  req.ID,
			Title:      req.Title,
			Requestor:  req.RequestorName,
			Transition: transition,
		}
		if err := s.notifier.NotifyStatusChange(ctx, change); err != nil {
			s.logger.Error("Failed to send status notification", "error", err, "id", id)
			warnings = append(warnings, Warning{
				Code:    WarningNotificationFailed,
				Message: err.Error(),
			})
		}
	}

	return s.result(req, warnings), nil
}

// DeleteRequest removes a request with its lines, history and attached document
func (s *procurementServiceImpl) DeleteRequest(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get request %d: %w", id, err)
	}
	if req == nil {
		return fmt.Errorf("request %d: %w", id, entity.ErrNotFound)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("Failed to delete request", "error", err, "id", id)
		return fmt.Errorf("delete request %d: %w", id, err)
	}
	if !deleted {
		return fmt.Errorf("request %d: %w", id, entity.ErrNotFound)
	}

	if req.PDFFilename != nil && s.storage != nil {
		if err := s.storage.Delete(ctx, *req.PDFFilename); err != nil {
			s.logger.Error("Failed to delete attached document", "error", err, "id", id, "file", *req.PDFFilename)
		}
	}

	s.logger.Info("Request deleted", "id", id)
	return nil
}

// GetRequest returns a request snapshot
func (s *procurementServiceImpl) GetRequest(ctx context.Context, id int64) (*entity.ProcurementRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get request", "error", err, "id", id)
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %d: %w", id, entity.ErrNotFound)
	}
	return req, nil
}

// ListRequests returns matching requests, newest first
func (s *procurementServiceImpl) ListRequests(ctx context.Context, filter port.RequestFilter) ([]*entity.ProcurementRequest, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidStatus, filter.Status)
	}

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err)
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// NextStatuses lists the statuses the configured policy admits from current
func (s *procurementServiceImpl) NextStatuses(current workflow.Status) []workflow.Status {
	return s.engine.Policy().Targets(current)
}

// Reconcile reports every mismatching line and the aggregate result
func (s *procurementServiceImpl) Reconcile(ctx context.Context, id int64) (*reconcile.Report, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	report := req.Reconciliation()
	return &report, nil
}

// rulesFor binds commodity membership to the current catalog
func (s *procurementServiceImpl) rulesFor(ctx context.Context) (entity.Rules, error) {
	rules := s.rules
	if s.catalog == nil {
		return rules, nil
	}

	groups, err := s.catalog.ListCommodityGroups(ctx)
	if err != nil {
		return rules, fmt.Errorf("load commodity groups: %w", err)
	}
	known := make(map[string]bool, len(groups))
	for _, g := range groups {
		known[g.ID] = true
	}
	rules.KnownCommodity = func(id string) bool { return known[id] }

	return rules, nil
}

// result attaches reconciliation warnings and records mismatch metrics
func (s *procurementServiceImpl) result(req *entity.ProcurementRequest, warnings []Warning) *Result {
	report := req.Reconciliation()
	for _, l := range report.Lines {
		s.metrics.MismatchDetected("line")
		warnings = append(warnings, Warning{
			Code:    WarningPriceMismatch,
			Field:   fmt.Sprintf("order_lines[%d].stated_total_price", l.Index),
			Message: fmt.Sprintf("stated %s differs from calculated %s", l.Stated.StringFixed(2), l.Calculated.StringFixed(2)),
		})
	}
	if report.HasTotalMismatch {
		s.metrics.MismatchDetected("total")
		warnings = append(warnings, Warning{
			Code:    WarningTotalMismatch,
			Field:   "stated_total_cost",
			Message: fmt.Sprintf("stated %s differs from calculated %s", report.StatedTotal.StringFixed(2), report.CalculatedTotal.StringFixed(2)),
		})
	}

	if warnings == nil {
		warnings = []Warning{}
	}
	return &Result{Request: req, Warnings: warnings}
}

func (s *procurementServiceImpl) wrap(op string, id int64, err error) error {
	var verr *entity.ValidationError
	if !errors.As(err, &verr) && !errors.Is(err, entity.ErrNotFound) {
		s.logger.Error("Failed to "+op, "error", err, "id", id)
	}
	return fmt.Errorf("%s %d: %w", op, id, err)
}

func advisoryWarnings(advisories []entity.FieldError) []Warning {
	var warnings []Warning
	for _, a := range advisories {
		warnings = append(warnings, Warning{Code: WarningVATFormat, Field: a.Field, Message: a.Message})
	}
	return warnings
}

type nopNotifier struct{}

func (nopNotifier) NotifyStatusChange(ctx context.Context, change port.StatusChange) error {
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RequestCreated(currency string) {}

func (nopMetrics) StatusChanged(from, to workflow.Status) {}

func (nopMetrics) MismatchDetected(kind string) {}

func (nopMetrics) CollaboratorFailed(collaborator string) {}
