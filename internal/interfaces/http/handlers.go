package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osusproperties/brokerage-core/internal/application/service"
	"github.com/osusproperties/brokerage-core/internal/application/workflow"
)

// ActorHeader carries the ID of the user performing a request
const ActorHeader = "X-Actor-ID"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HealthChecker reports the health of backing components by name
type HealthChecker interface {
	Health(ctx context.Context) map[string]error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	commission service.CommissionService
	approvals  service.ApprovalService
	engine     workflow.WorkflowEngine
	leads      service.LeadService
	reports    service.ReportService
	health     HealthChecker
	version    string
	logger     Logger
}

// Deps groups the services the handlers call
type Deps struct {
	Commission service.CommissionService
	Approvals  service.ApprovalService
	Engine     workflow.WorkflowEngine
	Leads      service.LeadService
	Reports    service.ReportService
	// Health is optional
	Health  HealthChecker
	Version string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Deps, logger Logger) *Handlers {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Handlers{
		commission: deps.Commission,
		approvals:  deps.Approvals,
		engine:     deps.Engine,
		leads:      deps.Leads,
		reports:    deps.Reports,
		health:     deps.Health,
		version:    version,
		logger:     logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// PageQuery holds paging query parameters
type PageQuery struct {
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
	State  string `form:"state"`
}

func (q *PageQuery) normalize() {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}

	status := http.StatusOK
	if h.health != nil {
		resp.Components = make(map[string]string)
		for name, err := range h.health.Health(c.Request.Context()) {
			if err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: resp})
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// pathID parses the :id parameter, writing a 400 on failure
func pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, CodeBadRequest, "invalid id: "+idStr)
		return 0, false
	}
	return id, true
}

// actor returns the X-Actor-ID header, writing a 400 when it is missing
func actor(c *gin.Context) (string, bool) {
	a := c.GetHeader(ActorHeader)
	if a == "" {
		badRequest(c, CodeMissingActor, ActorHeader+" header is required")
		return "", false
	}
	return a, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func bindQuery(c *gin.Context, q *PageQuery) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		badRequest(c, CodeBadRequest, "invalid query parameters")
		return false
	}
	q.normalize()
	return true
}

func xlsx(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, body)
}
