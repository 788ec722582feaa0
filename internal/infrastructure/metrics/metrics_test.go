package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/garyjia/procuro/internal/domain/workflow"
)

func TestMetrics_DomainCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RequestCreated("EUR")
	m.RequestCreated("EUR")
	m.StatusChanged(workflow.StatusOpen, workflow.StatusClosed)
	m.MismatchDetected("total")
	m.CollaboratorFailed("classifier")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsCreated.WithLabelValues("EUR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusChanges.WithLabelValues("Open", "Closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mismatches.WithLabelValues("total")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collaboratorFailure.WithLabelValues("classifier")))
}

func TestMetrics_GinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := New(reg)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/requests/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/requests/42", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
	families, err := reg.Gather()
	assert.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "procuro_http_request_duration_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "route" && label.GetValue() == "/api/requests/:id" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "route label must be the template, not the raw path")
}
