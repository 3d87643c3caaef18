package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/service"
	"github.com/rs/zerolog"
)

// EmployeeHandler handles roster and selection endpoints
type EmployeeHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewEmployeeHandler creates a new EmployeeHandler
func NewEmployeeHandler(services *service.Services, log zerolog.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		services: services,
		log:      log.With().Str("handler", "employee").Logger(),
	}
}

// List handles GET /v1/employees?lob=
func (h *EmployeeHandler) List(c *gin.Context) {
	actor, _ := actorFrom(c)

	employees, err := h.services.Selection.ListEmployees(c.Request.Context(), actor, c.Query("lob"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if employees == nil {
		employees = []*models.Employee{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(employees), "employees": employees})
}

// UpdateSelection handles PUT /v1/employees/:id/selection
// A null or blank reason deselects; "NOT_SELECTED" selects without a reason.
func (h *EmployeeHandler) UpdateSelection(c *gin.Context) {
	var req models.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	actor, _ := actorFrom(c)

	edit, err := h.services.Selection.Queue(c.Request.Context(), c.Param("id"), req.Reason, actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
		"edit":   edit,
	})
}

// Flush handles POST /v1/employees/flush
func (h *EmployeeHandler) Flush(c *gin.Context) {
	n, err := h.services.Selection.Flush(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": n})
}
