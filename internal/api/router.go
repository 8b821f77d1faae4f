package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wenqi/jobtailor/internal/api/handler"
	"github.com/wenqi/jobtailor/internal/api/middleware"
	"github.com/wenqi/jobtailor/internal/logger"
	"github.com/wenqi/jobtailor/internal/progress"
	"github.com/wenqi/jobtailor/internal/scheduler"
	"github.com/wenqi/jobtailor/internal/service"
)

// Deps bundles the services the router exposes.
type Deps struct {
	Scheduler    *scheduler.Scheduler
	Bus          *progress.Bus
	Profiles     *service.ProfileService
	Applications *service.ApplicationService
	Credits      *service.CreditService
	Log          *logger.Logger
	CORS         middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(deps Deps, mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Log))
	r.Use(middleware.CORS(deps.CORS))

	healthHandler := handler.NewHealthHandler()
	jobHandler := handler.NewJobHandler(deps.Scheduler, deps.Bus)
	profileHandler := handler.NewProfileHandler(deps.Profiles)
	applicationHandler := handler.NewApplicationHandler(deps.Applications)
	creditHandler := handler.NewCreditHandler(deps.Credits)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Jobs
		v1.POST("/jobs", jobHandler.Submit)
		v1.GET("/jobs/status", jobHandler.Status)
		v1.GET("/jobs/pending", jobHandler.Pending)
		v1.GET("/jobs/events", jobHandler.Events)

		// Profile
		v1.GET("/profile", profileHandler.Get)
		v1.PUT("/profile", profileHandler.Put)

		// Applications
		v1.GET("/applications", applicationHandler.List)

		// Credits
		v1.GET("/credits", creditHandler.Balance)
		v1.POST("/credits/grant", creditHandler.Grant)
	}

	return r
}
