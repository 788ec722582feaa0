package http

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/application/service"
	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	procurement service.ProcurementService
	exports     service.ExportService
	config      ServerConfig
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(procurement service.ProcurementService, exports service.ExportService, config ServerConfig, logger Logger) *Handlers {
	return &Handlers{
		procurement: procurement,
		exports:     exports,
		config:      config,
		logger:      logger,
	}
}

func (h *Handlers) requestView(r *entity.ProcurementRequest) RequestView {
	return toRequestView(r, h.procurement.NextStatuses(r.Status))
}

func (h *Handlers) resultView(res *service.Result) ResultView {
	return toResultView(res, h.procurement.NextStatuses(res.Request.Status))
}

// ListRequestsQuery represents query parameters for listing requests
type ListRequestsQuery struct {
	Status string `form:"status"`
	Search string `form:"search"`
}

// StatusChangeBody is the body of PATCH /api/requests/:id/status
type StatusChangeBody struct {
	Status    string `json:"status" binding:"required"`
	ChangedBy string `json:"changed_by"`
}

// ClassifyBody is the body of POST /api/commodity-groups/classify
type ClassifyBody struct {
	Text string `json:"text"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.config.Version,
		},
	})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	requests, err := h.procurement.ListRequests(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "list requests", err)
		return
	}

	views := make([]RequestView, len(requests))
	for i, r := range requests {
		views[i] = h.requestView(r)
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: views})
}

// ExportRequests handles GET /api/requests/export
func (h *Handlers) ExportRequests(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	export, err := h.exports.ExportRequests(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "export requests", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Content)
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var draft entity.RequestDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.procurement.CreateRequest(c.Request.Context(), draft)
	if err != nil {
		h.respondError(c, "create request", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: h.resultView(res)})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	req, err := h.procurement.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: h.requestView(req)})
}

// UpdateRequest handles PUT /api/requests/:id. Absent fields keep their value.
func (h *Handlers) UpdateRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var draft entity.RequestDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.procurement.UpdateRequest(c.Request.Context(), id, draft)
	if err != nil {
		h.respondError(c, "update request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: h.resultView(res)})
}

// DeleteRequest handles DELETE /api/requests/:id
func (h *Handlers) DeleteRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.procurement.DeleteRequest(c.Request.Context(), id); err != nil {
		h.respondError(c, "delete request", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangeStatus handles PATCH /api/requests/:id/status
func (h *Handlers) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body StatusChangeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	status, err := workflow.ParseStatus(body.Status)
	if err != nil {
		h.respondError(c, "change status", err)
		return
	}

	res, err := h.procurement.ChangeStatus(c.Request.Context(), id, status, body.ChangedBy)
	if err != nil {
		h.respondError(c, "change status", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: h.resultView(res)})
}

// Reconcile handles GET /api/requests/:id/reconciliation
func (h *Handlers) Reconcile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	report, err := h.procurement.Reconcile(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "reconcile request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toReconciliationView(id, report)})
}

// MergeExtraction handles POST /api/requests/:id/extraction
func (h *Handlers) MergeExtraction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var draft entity.ExtractionDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.procurement.MergeExtraction(c.Request.Context(), id, draft)
	if err != nil {
		h.respondError(c, "merge extraction", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: h.resultView(res)})
}

// AttachDocument handles POST /api/requests/:id/pdf with a multipart "file".
// ?extract=true also merges the extracted data into the request.
func (h *Handlers) AttachDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	extract, err := strconv.ParseBool(c.DefaultQuery("extract", "false"))
	if err != nil {
		badRequest(c, "extract must be a boolean")
		return
	}
	filename, content, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.procurement.AttachDocument(c.Request.Context(), id, filename, content, extract)
	if err != nil {
		h.respondError(c, "attach document", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: h.resultView(res)})
}

// GetDocument handles GET /api/requests/:id/pdf
func (h *Handlers) GetDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	name, content, err := h.procurement.GetDocument(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get document", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", content)
}

// RemoveDocument handles DELETE /api/requests/:id/pdf
func (h *Handlers) RemoveDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	res, err := h.procurement.RemoveDocument(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "remove document", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: h.resultView(res)})
}

// ExtractDocument handles POST /api/extraction/pdf. No request is touched.
func (h *Handlers) ExtractDocument(c *gin.Context) {
	filename, content, ok := h.readUpload(c)
	if !ok {
		return
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		h.respondError(c, "extract document", &entity.ValidationError{
			Fields: []entity.FieldError{{Field: "file", Message: "only PDF files are accepted"}},
		})
		return
	}

	draft, err := h.procurement.ExtractDocument(c.Request.Context(), content)
	if err != nil {
		h.respondError(c, "extract document", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: draft})
}

// ListCommodityGroups handles GET /api/commodity-groups. ?grouped=true groups by category.
func (h *Handlers) ListCommodityGroups(c *gin.Context) {
	groups, err := h.procurement.ListCommodityGroups(c.Request.Context())
	if err != nil {
		h.respondError(c, "list commodity groups", err)
		return
	}

	if grouped, _ := strconv.ParseBool(c.Query("grouped")); grouped {
		c.JSON(http.StatusOK, Response{Success: true, Data: entity.GroupByCategory(groups)})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: groups})
}

// Classify handles POST /api/commodity-groups/classify
func (h *Handlers) Classify(c *gin.Context) {
	var body ClassifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.procurement.ClassifyText(c.Request.Context(), body.Text)
	if err != nil {
		h.respondError(c, "classify text", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

func pathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid request ID")
		return 0, false
	}
	return id, true
}

func bindFilter(c *gin.Context) (port.RequestFilter, bool) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return port.RequestFilter{}, false
	}

	filter := port.RequestFilter{Search: strings.TrimSpace(q.Search)}
	if strings.TrimSpace(q.Status) != "" {
		status, err := workflow.ParseStatus(q.Status)
		if err != nil {
			badRequest(c, err.Error())
			return port.RequestFilter{}, false
		}
		filter.Status = status
	}
	return filter, true
}

// readUpload reads the multipart "file" field up to the configured size limit
func (h *Handlers) readUpload(c *gin.Context) (string, []byte, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return "", nil, false
	}
	if h.config.MaxUploadBytes > 0 && header.Size > h.config.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, Response{
			Success: false,
			Error:   fmt.Sprintf("file exceeds %d bytes", h.config.MaxUploadBytes),
		})
		return "", nil, false
	}

	f, err := header.Open()
	if err != nil {
		h.respondError(c, "read upload", err)
		return "", nil, false
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.respondError(c, "read upload", err)
		return "", nil, false
	}
	return header.Filename, content, true
}
