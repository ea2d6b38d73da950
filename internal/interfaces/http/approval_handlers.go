package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/domain/approval"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

// TransitionRequest is the body of POST /api/approvals/:id/transition
type TransitionRequest struct {
	Target string `json:"target" binding:"required"`
	Reason string `json:"reason"`
}

// ReasonRequest carries an optional free-text reason
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// CreateRecord handles POST /api/approvals
func (h *Handlers) CreateRecord(c *gin.Context) {
	who, valid := actor(c)
	if !valid {
		return
	}
	var in service.CreateRecordInput
	if !bindJSON(c, &in) {
		return
	}

	record, err := h.approvals.CreateRecord(c.Request.Context(), in, who)
	if err != nil {
		h.respondError(c, "create approval record", err)
		return
	}

	respond(c, http.StatusCreated, record)
}

// ListRecords handles GET /api/approvals
func (h *Handlers) ListRecords(c *gin.Context) {
	var q PageQuery
	if !bindQuery(c, &q) {
		return
	}
	state := approval.State(q.State)
	if state != "" && !state.IsValid() {
		badRequest(c, CodeBadRequest, "unknown state: "+q.State)
		return
	}

	records, err := h.approvals.ListRecords(c.Request.Context(), state, q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, "list approval records", err)
		return
	}
	if records == nil {
		records = []*entity.ApprovalRecord{}
	}

	respond(c, http.StatusOK, records)
}

// GetRecord handles GET /api/approvals/:id
func (h *Handlers) GetRecord(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	record, err := h.approvals.GetRecord(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get approval record", err)
		return
	}

	respond(c, http.StatusOK, record)
}

// RecordHistory handles GET /api/approvals/:id/history
func (h *Handlers) RecordHistory(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	entries, err := h.approvals.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get approval history", err)
		return
	}
	if entries == nil {
		entries = []*entity.AuditEntry{}
	}

	respond(c, http.StatusOK, entries)
}

// AvailableTargets handles GET /api/approvals/:id/targets
func (h *Handlers) AvailableTargets(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	who, valid := actor(c)
	if !valid {
		return
	}

	targets, err := h.engine.AvailableTargets(c.Request.Context(), id, who)
	if err != nil {
		h.respondError(c, "list available transitions", err)
		return
	}
	if targets == nil {
		targets = []approval.State{}
	}

	respond(c, http.StatusOK, targets)
}

// TransitionRecord handles POST /api/approvals/:id/transition
func (h *Handlers) TransitionRecord(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	who, valid := actor(c)
	if !valid {
		return
	}
	var req TransitionRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.engine.Transition(c.Request.Context(), id, approval.State(req.Target), who, req.Reason)
	if err != nil {
		h.respondError(c, "transition approval record", err)
		return
	}

	respond(c, http.StatusOK, record)
}

// ApproveRecord handles POST /api/approvals/:id/approve
func (h *Handlers) ApproveRecord(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	who, valid := actor(c)
	if !valid {
		return
	}

	record, err := h.engine.ApproveTransfer(c.Request.Context(), id, who)
	if err != nil {
		h.respondError(c, "approve record", err)
		return
	}

	respond(c, http.StatusOK, record)
}

// RejectRecord handles POST /api/approvals/:id/reject
func (h *Handlers) RejectRecord(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	who, valid := actor(c)
	if !valid {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	record, err := h.engine.RejectTransfer(c.Request.Context(), id, who, req.Reason)
	if err != nil {
		h.respondError(c, "reject record", err)
		return
	}

	respond(c, http.StatusOK, record)
}
