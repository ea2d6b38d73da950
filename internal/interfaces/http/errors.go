package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/application/workflow"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/commission"
)

// Error codes carried in the response envelope
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeMissingActor      = "MISSING_ACTOR"
	CodeNotFound          = "NOT_FOUND"
	CodeNotAuthorized     = "NOT_AUTHORIZED"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeAlreadyInState    = "ALREADY_IN_STATE"
	CodeSaleLocked        = "SALE_LOCKED"
	CodeSaleState         = "SALE_STATE"
	CodeConflict          = "CONFLICT"
	CodeOverAllocation    = "OVER_ALLOCATION"
	CodeValidation        = "VALIDATION_FAILED"
	CodeUnavailable       = "UNAVAILABLE"
	CodeInternal          = "INTERNAL"
)

// apiError is a classified service error
type apiError struct {
	status int
	code   string
}

// classify maps service and domain errors to an HTTP status and error code
func classify(err error) apiError {
	if kind, ok := approval.KindOf(err); ok {
		switch kind {
		case approval.KindNotAuthorized:
			return apiError{http.StatusForbidden, CodeNotAuthorized}
		case approval.KindAlreadyInState:
			return apiError{http.StatusConflict, CodeAlreadyInState}
		default:
			return apiError{http.StatusConflict, CodeIllegalTransition}
		}
	}

	switch {
	case errors.Is(err, service.ErrSaleNotFound),
		errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, service.ErrLeadNotFound):
		return apiError{http.StatusNotFound, CodeNotFound}

	case errors.Is(err, service.ErrSaleLocked):
		return apiError{http.StatusConflict, CodeSaleLocked}
	case errors.Is(err, service.ErrSaleState):
		return apiError{http.StatusConflict, CodeSaleState}
	case errors.Is(err, port.ErrStaleRecord):
		return apiError{http.StatusConflict, CodeConflict}

	case errors.Is(err, commission.ErrOverAllocation):
		return apiError{http.StatusUnprocessableEntity, CodeOverAllocation}
	case errors.Is(err, commission.ErrUnknownCalcType),
		errors.Is(err, commission.ErrNegativeAmount),
		errors.Is(err, commission.ErrRateOutOfRange),
		errors.Is(err, commission.ErrInvalidRole),
		errors.Is(err, commission.ErrMissingPartner),
		errors.Is(err, service.ErrInvalidSale),
		errors.Is(err, service.ErrInvalidRecord),
		errors.Is(err, service.ErrInvalidLead),
		errors.Is(err, workflow.ErrReasonRequired):
		return apiError{http.StatusUnprocessableEntity, CodeValidation}

	case errors.Is(err, approval.ErrInvalidState):
		return apiError{http.StatusBadRequest, CodeBadRequest}

	case errors.Is(err, service.ErrScoringDisabled),
		errors.Is(err, service.ErrNoApproversConfigured):
		return apiError{http.StatusServiceUnavailable, CodeUnavailable}
	}

	return apiError{http.StatusInternalServerError, CodeInternal}
}

// respondError writes the envelope for err. Internal errors are logged and
// their message is not exposed.
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	e := classify(err)
	msg := err.Error()
	if e.status == http.StatusInternalServerError {
		h.logger.Error(op+" failed", "error", err, "path", c.Request.URL.Path)
		msg = op + " failed"
	}
	c.JSON(e.status, Response{Success: false, Error: msg, Code: e.code})
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg, Code: code})
}
