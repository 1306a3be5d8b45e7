package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clover-lab/clover-api/internal/middleware"
	"github.com/clover-lab/clover-api/internal/models"
	"github.com/clover-lab/clover-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Uploads     *UploadHandler
	Classes     *ClassHandler
	Enrollments *EnrollmentHandler
	ActivityLog *ActivityLogHandler
	Stats       *StatsHandler
	ErrorLogs   *ErrorLogHandler
	Consent     *ConsentHandler
	Reports     *ReportHandler
	AuditLogs   *AuditLogHandler

	// ReportQueueDepth, when set, surfaces the worker backlog on the
	// readiness endpoint.
	ReportQueueDepth func() int
}

// RegisterRoutes mounts the API surface under the configured prefix. Health
// and metrics endpoints live outside the prefix so monitoring endpoints stay stable.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, metrics *service.MetricsService, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		payload := gin.H{"status": "ready"}
		if h.ReportQueueDepth != nil {
			payload["report_queue_depth"] = h.ReportQueueDepth()
		}
		c.JSON(http.StatusOK, payload)
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := r.Group(prefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/password/reset", h.Auth.ForgotPassword)
		authGroup.POST("/password/reset/confirm", h.Auth.ResetPassword)

		authGroup.POST("/logout", middleware.JWT(auth), h.Auth.Logout)
		authGroup.POST("/password/change", middleware.JWT(auth), h.Auth.ChangePassword)
		authGroup.GET("/me", middleware.JWT(auth), h.Auth.Me)
	}

	users := api.Group("/users", middleware.JWT(auth))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), h.Users.List)
		users.POST("", middleware.RequireRoles(models.RoleAdmin), h.Users.Create)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleInstructor), "SELF"), h.Users.Get)
		users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Users.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Users.Delete)
		users.GET("/:id/settings", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Users.Settings)
		users.PUT("/:id/settings", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Users.UpdateSettings)
		users.GET("/:id/activity", middleware.RBAC(string(models.RoleAdmin), string(models.RoleInstructor), "SELF"), h.ActivityLog.ListForUser)
		users.GET("/:id/stats/progress", middleware.RBAC(string(models.RoleAdmin), string(models.RoleInstructor), "SELF"), h.Stats.UserProgress)
		users.GET("/:id/stats/series", middleware.RBAC(string(models.RoleAdmin), string(models.RoleInstructor), "SELF"), h.Stats.UserSeries)
	}

	api.POST("/uploads/avatar", middleware.JWT(auth), h.Uploads.Avatar)

	classes := api.Group("/classes", middleware.JWT(auth))
	{
		classes.GET("", h.Classes.List)
		classes.GET("/:id", h.Classes.Get)
		classes.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), h.Classes.Create)
		classes.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), h.Classes.Update)
		classes.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Classes.Delete)
		classes.GET("/:id/roster", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), h.Classes.Roster)
		classes.GET("/:id/stats/progress", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), h.Stats.ClassProgress)
		classes.GET("/:id/stats/series", middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), h.Stats.ClassSeries)
	}

	enrollments := api.Group("/enrollments", middleware.JWT(auth))
	{
		enrollments.GET("", h.Enrollments.List)
		enrollments.POST("/actions", h.Enrollments.Dispatch)
	}

	activity := api.Group("/activity-logs", middleware.JWT(auth))
	{
		activity.POST("", h.ActivityLog.Ingest)
		activity.GET("", h.ActivityLog.List)
	}

	statsGroup := api.Group("/stats", middleware.JWT(auth))
	{
		statsGroup.GET("/progress", h.Stats.Progress)
		statsGroup.GET("/series", h.Stats.Series)
		statsGroup.GET("/system", middleware.RequireRoles(models.RoleAdmin, models.RoleDeveloper), h.Stats.System)
	}

	errorLogs := api.Group("/error-logs")
	{
		// reports may arrive from unauthenticated clients crashing before login
		errorLogs.POST("", middleware.OptionalJWT(auth), h.ErrorLogs.Report)
		errorLogs.GET("", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin, models.RoleDeveloper), h.ErrorLogs.List)
		errorLogs.GET("/:id", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin, models.RoleDeveloper), h.ErrorLogs.Get)
		errorLogs.PUT("/:id/resolve", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin, models.RoleDeveloper), h.ErrorLogs.Resolve)
	}

	api.GET("/audit-logs", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin), h.AuditLogs.List)

	consent := api.Group("/consent-form")
	{
		consent.GET("", h.Consent.Latest)
		consent.PUT("", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin), h.Consent.Update)
		consent.GET("/history", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin), h.Consent.History)
	}

	reports := api.Group("/reports")
	{
		reports.POST("", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), h.Reports.Create)
		reports.GET("", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor), h.Reports.List)
		reports.GET("/:id", middleware.JWT(auth), h.Reports.Status)
		// token carries its own authentication
		reports.GET("/download/:token", h.Reports.Download)
	}
}
