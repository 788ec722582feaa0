package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

// statusFor maps a service error onto an HTTP status code
func statusFor(err error) int {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, entity.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrNotFound), errors.Is(err, entity.ErrNoDocument):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrTransitionNotAllowed),
		errors.Is(err, workflow.ErrGuardFailed),
		errors.Is(err, entity.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, entity.ErrExtractionFailed), errors.Is(err, entity.ErrClassificationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a failed Response. Internal errors are logged and not echoed.
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	resp := Response{Success: false, Error: err.Error()}

	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		resp.Error = entity.ErrValidation.Error()
		resp.Fields = verr.Fields
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Failed to "+op, "error", err, "request_id", c.GetString("request_id"))
		resp.Error = "failed to " + op
	}

	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}
