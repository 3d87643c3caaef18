package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/service"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

const csvContentType = "text/csv; charset=utf-8"

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Type", csvContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func (h *ExportHandler) sendReport(c *gin.Context, report *models.Report, err error) {
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	attachment(c, report.Filename)
	c.Data(http.StatusOK, csvContentType, []byte(report.Content))
}

// Template handles GET /v1/exports/template
func (h *ExportHandler) Template(c *gin.Context) {
	h.sendReport(c, h.services.Export.Template(), nil)
}

// Backup handles GET /v1/exports/backup
// Streams the whole roster in restore layout
func (h *ExportHandler) Backup(c *gin.Context) {
	attachment(c, h.services.Export.BackupFilename())
	c.Status(http.StatusOK)

	n, err := h.services.Export.WriteBackup(c.Request.Context(), c.Writer)
	if err != nil {
		// Can't return error JSON after streaming has started
		h.log.Error().Err(err).Int("written", n).Msg("Backup export failed")
		return
	}
	actor, _ := actorFrom(c)
	h.log.Info().Int("count", n).Str("actor", actor.Email).Msg("Backup downloaded")
}

// LOBReport handles GET /v1/exports/lobs/:lob/report
func (h *ExportHandler) LOBReport(c *gin.Context) {
	lob := c.Param("lob")
	actor, _ := actorFrom(c)
	if !actor.CanManage(lob) {
		respondError(c, h.log, service.ErrForbidden)
		return
	}

	report, err := h.services.Export.LOBReport(c.Request.Context(), lob)
	h.sendReport(c, report, err)
}

// Consolidated handles GET /v1/exports/consolidated?q=
func (h *ExportHandler) Consolidated(c *gin.Context) {
	report, err := h.services.Export.ConsolidatedReport(c.Request.Context(), c.Query("q"))
	h.sendReport(c, report, err)
}

// Summary handles GET /v1/exports/summary
// format=json returns the rows instead of a CSV download
func (h *ExportHandler) Summary(c *gin.Context) {
	if c.Query("format") == "json" {
		summaries, err := h.services.Export.Summaries(c.Request.Context())
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"lobs": summaries})
		return
	}

	report, err := h.services.Export.SummaryReport(c.Request.Context())
	h.sendReport(c, report, err)
}

// ITAccess handles GET /v1/exports/it-access
func (h *ExportHandler) ITAccess(c *gin.Context) {
	report, err := h.services.Export.ITAccessReport(c.Request.Context())
	h.sendReport(c, report, err)
}
