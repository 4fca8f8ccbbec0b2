package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobhelper/internal/services/health"
	"jobhelper/internal/session"
	"jobhelper/internal/shared/config"
	"jobhelper/internal/shared/metrics"
	"jobhelper/internal/shared/server/middleware"
	"jobhelper/internal/shared/server/respond"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, svc *session.Service) *gin.Engine {
	if cfg.Env == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	healthSvc := health.NewService(svc.Provider)
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	api.GET("/metrics", metrics.Handler())
	session.NewHandler(svc).RegisterRoutes(api)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
