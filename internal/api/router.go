package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kodevali/the300/internal/config"
	"github.com/kodevali/the300/internal/metrics"
	"github.com/kodevali/the300/internal/service"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(metricsMiddleware(m))
	router.Use(corsMiddleware())

	importHandler := NewImportHandler(services, cfg, log)
	exportHandler := NewExportHandler(services, log)
	employeeHandler := NewEmployeeHandler(services, log)
	adminHandler := NewAdminHandler(services, log)

	router.GET("/health", healthCheck)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/v1")
	v1.Use(actorMiddleware(services.Role, cfg, log))
	{
		imports := v1.Group("/imports")
		{
			imports.POST("", requireAdmin(), uploadLimiter(cfg, m), importHandler.CreateImport)
			imports.GET("/:job_id", importHandler.GetImportStatus)
			imports.GET("/:job_id/errors", importHandler.GetImportErrors)
		}

		exports := v1.Group("/exports")
		{
			exports.GET("/template", exportHandler.Template)
			exports.GET("/backup", requireAdmin(), exportHandler.Backup)
			exports.GET("/lobs/:lob/report", exportHandler.LOBReport)
			exports.GET("/consolidated", requireAdmin(), exportHandler.Consolidated)
			exports.GET("/summary", requireAdmin(), exportHandler.Summary)
			exports.GET("/it-access", requireAdmin(), exportHandler.ITAccess)
		}

		employees := v1.Group("/employees")
		{
			employees.GET("", employeeHandler.List)
			employees.PUT("/:id/selection", employeeHandler.UpdateSelection)
			employees.POST("/flush", employeeHandler.Flush)
		}

		v1.GET("/roles/me", adminHandler.MyRoles)
		v1.PUT("/roles/:lob", requireAdmin(), adminHandler.SaveRoles)
		v1.GET("/admins", requireAdmin(), adminHandler.ListAdmins)
		v1.PUT("/admins", requireAdmin(), adminHandler.ReplaceAdmins)
		v1.GET("/locks", adminHandler.ListLocks)
		v1.PUT("/locks/:lob", adminHandler.SetLock)
		v1.GET("/changelog", adminHandler.ListChangelog)
		v1.DELETE("/changelog", requireAdmin(), adminHandler.ClearChangelog)
		v1.POST("/reset", requireAdmin(), adminHandler.Reset)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "the300",
	})
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}
