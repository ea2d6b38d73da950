package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

// CreateLead handles POST /api/leads
func (h *Handlers) CreateLead(c *gin.Context) {
	var in service.LeadInput
	if !bindJSON(c, &in) {
		return
	}

	lead, err := h.leads.CreateLead(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "create lead", err)
		return
	}

	respond(c, http.StatusCreated, lead)
}

// ListLeads handles GET /api/leads
func (h *Handlers) ListLeads(c *gin.Context) {
	var q PageQuery
	if !bindQuery(c, &q) {
		return
	}

	leads, err := h.leads.ListLeads(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.respondError(c, "list leads", err)
		return
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}

	respond(c, http.StatusOK, leads)
}

// GetLead handles GET /api/leads/:id
func (h *Handlers) GetLead(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	lead, err := h.leads.GetLead(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get lead", err)
		return
	}

	respond(c, http.StatusOK, lead)
}

// ScoreLead handles POST /api/leads/:id/score
func (h *Handlers) ScoreLead(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	lead, err := h.leads.ScoreLead(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "score lead", err)
		return
	}

	respond(c, http.StatusOK, lead)
}
