package port

import (
	"context"

	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

// Extractor turns a vendor offer document into a draft. It returns either a
// complete best-effort draft or an error, never a partially filled draft.
type Extractor interface {
	Extract(ctx context.Context, document []byte) (*entity.ExtractionDraft, error)
}

// Classification is the classifier's answer for one free-text input
type Classification struct {
	CommodityGroupID string  `json:"commodity_group_id"`
	Confidence       float64 `json:"confidence"`
	Rationale        string  `json:"rationale"`
}

// Classifier maps free text to a commodity group. Identical input must yield identical output.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// CommodityCatalog provides the commodity group reference data
type CommodityCatalog interface {
	ListCommodityGroups(ctx context.Context) ([]entity.CommodityGroup, error)
}

// StatusChange describes an accepted status transition for notification
type StatusChange struct {
	RequestID  int64
	Title      string
	Requestor  string
	Transition workflow.Transition
}

// StatusNotifier announces accepted status changes
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, change StatusChange) error
}

// Metrics records domain events
type Metrics interface {
	RequestCreated(currency string)
	StatusChanged(from, to workflow.Status)
	MismatchDetected(kind string)
	CollaboratorFailed(collaborator string)
}

// Exporter renders requests into a downloadable document
type Exporter interface {
	ContentType() string
	FileExtension() string
	Export(ctx context.Context, requests []*entity.ProcurementRequest) ([]byte, error)
}
