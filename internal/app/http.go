package app

import (
	"github.com/dagra27407/spinalith-site-sub000/internal/http"
	httpH "github.com/dagra27407/spinalith-site-sub000/internal/http/handlers"
	httpMW "github.com/dagra27407/spinalith-site-sub000/internal/http/middleware"
	"github.com/dagra27407/spinalith-site-sub000/internal/observability"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Stage   *httpH.StageHandler
	Request *httpH.RequestHandler
	Events  *httpH.EventsHandler
	Project *httpH.ProjectHandler
}

func wireHandlers(log *logger.Logger, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	var bus httpH.StatusSubscriber
	if clients.StatusBus != nil {
		bus = clients.StatusBus
	}
	return Handlers{
		Health:  httpH.NewHealthHandler(),
		Stage:   httpH.NewStageHandler(services.Stages),
		Request: httpH.NewRequestHandler(services.Requests),
		Events:  httpH.NewEventsHandler(log, services.Requests, bus),
		Project: httpH.NewProjectHandler(services.Projects),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSOrigins,
		AuthMiddleware: middleware.Auth,
		StageHandler:   handlers.Stage,
		RequestHandler: handlers.Request,
		EventsHandler:  handlers.Events,
		ProjectHandler: handlers.Project,
		HealthHandler:  handlers.Health,
	})
}
