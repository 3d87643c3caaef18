package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/service"
	"github.com/rs/zerolog"
)

const defaultChangelogLimit = 500

// AdminHandler handles roles, locks and change log endpoints
type AdminHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(services *service.Services, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		services: services,
		log:      log.With().Str("handler", "admin").Logger(),
	}
}

// MyRoles handles GET /v1/roles/me
func (h *AdminHandler) MyRoles(c *gin.Context) {
	actor, _ := actorFrom(c)
	resp, err := h.services.Role.RolesFor(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaveRoles handles PUT /v1/roles/:lob
func (h *AdminHandler) SaveRoles(c *gin.Context) {
	var roles models.LOBRoles
	if err := c.ShouldBindJSON(&roles); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	roles.LOB = c.Param("lob")
	if roles.Delegates == nil {
		roles.Delegates = []string{}
	}
	actor, _ := actorFrom(c)

	if err := h.services.Role.SaveRoles(c.Request.Context(), roles, actor); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// ListAdmins handles GET /v1/admins
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	admins, err := h.services.Role.ListAdmins(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"emails": admins})
}

// ReplaceAdmins handles PUT /v1/admins
func (h *AdminHandler) ReplaceAdmins(c *gin.Context) {
	var req models.AdminsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emails is required"})
		return
	}
	actor, _ := actorFrom(c)

	if err := h.services.Role.ReplaceAdmins(c.Request.Context(), req.Emails, actor); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListLocks handles GET /v1/locks
func (h *AdminHandler) ListLocks(c *gin.Context) {
	locks, err := h.services.Lock.ListLocks(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locks": locks})
}

// SetLock handles PUT /v1/locks/:lob
func (h *AdminHandler) SetLock(c *gin.Context) {
	var req models.LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	lob := c.Param("lob")
	actor, _ := actorFrom(c)

	if err := h.services.Lock.SetLock(c.Request.Context(), lob, req.Locked, actor); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lob": lob, "locked": req.Locked})
}

// ListChangelog handles GET /v1/changelog?limit=
func (h *AdminHandler) ListChangelog(c *gin.Context) {
	limit := defaultChangelogLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.services.Audit.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ClearChangelog handles DELETE /v1/changelog
func (h *AdminHandler) ClearChangelog(c *gin.Context) {
	actor, _ := actorFrom(c)
	if err := h.services.Audit.Clear(c.Request.Context(), actor); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reset handles POST /v1/reset
func (h *AdminHandler) Reset(c *gin.Context) {
	actor, _ := actorFrom(c)
	if err := h.services.Selection.ResetForGoLive(c.Request.Context(), actor); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
