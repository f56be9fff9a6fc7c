package router

import (
	"time"

	"github.com/attestor-dev/attestor/internal/handlers"
	"github.com/attestor-dev/attestor/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func New(h *handlers.Handler) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     h.Cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authRequired := middleware.Auth(h.DB, h.Tokens)

	r.GET("/health", handlers.HealthCheck)

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/sso/azure", h.AzureSSOLogin)
	}

	api := r.Group("/api", authRequired)
	{
		api.GET("/me", h.Me)
		api.GET("/users", h.ListUsers)

		projects := api.Group("/projects")
		{
			projects.POST("", h.CreateProject)
			projects.GET("", h.ListProjects)
			projects.GET("/:project_id", h.GetProject)
			projects.PUT("/:project_id", h.UpdateProject)
			projects.DELETE("/:project_id", h.DeleteProject)

			projects.POST("/:project_id/tasks", h.CreateTask)
			projects.GET("/:project_id/tasks", h.ListProjectTasks)
			projects.POST("/:project_id/apply_baseline/:baseline_id", h.ApplyBaseline)
		}

		baselines := api.Group("/baselines")
		{
			baselines.POST("", h.CreateBaseline)
			baselines.GET("", h.ListBaselines)
			baselines.GET("/:baseline_id", h.GetBaseline)
			baselines.DELETE("/:baseline_id", h.DeleteBaseline)
			baselines.POST("/:baseline_id/task_definitions", h.CreateTaskDefinition)
		}

		api.PUT("/task_definitions/:task_def_id", h.UpdateTaskDefinition)
		api.DELETE("/task_definitions/:task_def_id", h.DeleteTaskDefinition)

		tasks := api.Group("/tasks")
		{
			tasks.GET("/:task_id", h.GetTask)
			tasks.PUT("/:task_id", h.UpdateTask)
			tasks.POST("/:task_id/evidence", h.UploadEvidence)
			tasks.GET("/:task_id/evidence", h.ListTaskEvidence)
		}

		evidence := api.Group("/evidence")
		{
			evidence.GET("/:evidence_id", h.GetEvidence)
			evidence.PUT("/:evidence_id", h.UpdateEvidence)
			evidence.DELETE("/:evidence_id", h.DeleteEvidence)
			evidence.GET("/:evidence_id/download", h.DownloadEvidence)
		}
	}

	return r
}
