package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/dagra27407/spinalith-site-sub000/internal/http/handlers"
	httpMW "github.com/dagra27407/spinalith-site-sub000/internal/http/middleware"
	"github.com/dagra27407/spinalith-site-sub000/internal/observability"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	StageHandler   *httpH.StageHandler
	RequestHandler *httpH.RequestHandler
	EventsHandler  *httpH.EventsHandler
	ProjectHandler *httpH.ProjectHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	// Stage endpoints are POST only; anything else should read as 405, not 404.
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "spinalith-assistant"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Assistant pipeline
	if cfg.StageHandler != nil {
		api.POST("/assistant/stages/:stage", cfg.StageHandler.RunStage)
	}
	if cfg.RequestHandler != nil {
		api.POST("/assistant/requests", cfg.RequestHandler.CreateRequest)
		api.GET("/assistant/requests/:id", cfg.RequestHandler.GetRequest)
	}
	if cfg.EventsHandler != nil {
		api.GET("/assistant/requests/:id/events", cfg.EventsHandler.StreamStatus)
	}

	// Narrative projects
	if cfg.ProjectHandler != nil {
		api.POST("/narrative-projects", cfg.ProjectHandler.CreateProject)
		api.GET("/narrative-projects", cfg.ProjectHandler.ListProjects)
		api.GET("/narrative-projects/:id", cfg.ProjectHandler.GetProject)
		api.PUT("/narrative-projects/:id/payload-maps/:assistant", cfg.ProjectHandler.SavePayloadMap)
		api.GET("/narrative-projects/:id/payload-maps/:assistant", cfg.ProjectHandler.GetPayloadMap)
	}

	return r
}
