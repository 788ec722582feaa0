package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// mockRequestRepo keeps aggregates in memory; the func fields override behaviour
type mockRequestRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*entity.ProcurementRequest

	createFunc  func(ctx context.Context, req *entity.ProcurementRequest) error
	updateCalls int
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{items: make(map[int64]*entity.ProcurementRequest)}
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.ProcurementRequest) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	req.ID = m.nextID
	m.items[req.ID] = req.Clone()
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.ProcurementRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return req.Clone(), nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.ProcurementRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*entity.ProcurementRequest{}
	for _, req := range m.items {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRequestRepo) Update(ctx context.Context, id int64, fn func(req *entity.ProcurementRequest) error) (*entity.ProcurementRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	stored, ok := m.items[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	m.items[id] = working.Clone()
	return working, nil
}

func (m *mockRequestRepo) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *mockRequestRepo) stored(id int64) *entity.ProcurementRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req, ok := m.items[id]; ok {
		return req.Clone()
	}
	return nil
}

type mockCatalog struct {
	groups []entity.CommodityGroup
	err    error
}

func (m *mockCatalog) ListCommodityGroups(ctx context.Context) ([]entity.CommodityGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.groups, nil
}

func defaultCatalog() *mockCatalog {
	return &mockCatalog{groups: []entity.CommodityGroup{
		{ID: "009", Category: "General Services", Name: "Other General Services"},
		{ID: "011", Category: "Facility Management", Name: "Furniture"},
		{ID: "031", Category: "Information Technology", Name: "Hardware"},
	}}
}

type mockClassifier struct {
	mu           sync.Mutex
	classifyFunc func(ctx context.Context, text string) (*port.Classification, error)
	texts        []string
}

func (m *mockClassifier) Classify(ctx context.Context, text string) (*port.Classification, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.classifyFunc != nil {
		return m.classifyFunc(ctx, text)
	}
	return &port.Classification{CommodityGroupID: "031", Confidence: 0.9, Rationale: "hardware"}, nil
}

type mockExtractor struct {
	extractFunc func(ctx context.Context, document []byte) (*entity.ExtractionDraft, error)
}

func (m *mockExtractor) Extract(ctx context.Context, document []byte) (*entity.ExtractionDraft, error) {
	if m.extractFunc != nil {
		return m.extractFunc(ctx, document)
	}
	return &entity.ExtractionDraft{}, nil
}

type mockStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte{}, content...)
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return content, nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/tmp/" + relativePath
}

type mockNotifier struct {
	mu      sync.Mutex
	changes []port.StatusChange
	err     error
}

func (m *mockNotifier) NotifyStatusChange(ctx context.Context, change port.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, change)
	return m.err
}

type mockMetrics struct {
	mu          sync.Mutex
	created     int
	transitions []string
	mismatches  []string
	failures    []string
}

func (m *mockMetrics) RequestCreated(currency string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *mockMetrics) StatusChanged(from, to workflow.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, string(from)+"->"+string(to))
}

func (m *mockMetrics) MismatchDetected(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mismatches = append(m.mismatches, kind)
}

func (m *mockMetrics) CollaboratorFailed(collaborator string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, collaborator)
}

// stepClock advances one minute per call
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}
