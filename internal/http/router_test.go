package http

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	httpH "github.com/dagra27407/spinalith-site-sub000/internal/http/handlers"
	httpMW "github.com/dagra27407/spinalith-site-sub000/internal/http/middleware"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

type okStages struct{}

func (okStages) RunStage(context.Context, string, uuid.UUID) (services.StageEnvelope, error) {
	return services.StageEnvelope{Outcome: "skipped", ElapsedTime: "0.000s"}, nil
}

func TestRouterAuthAndMethods(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	auth := services.NewAuthService(log, "secret", time.Minute)
	r := NewRouter(RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, auth),
		StageHandler:   httpH.NewStageHandler(okStages{}),
		HealthHandler:  httpH.NewHealthHandler(),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/healthcheck", nil))
	if w.Code != nethttp.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}

	body := `{"request_id":"` + uuid.NewString() + `"}`
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(nethttp.MethodPost, "/api/assistant/stages/run-assistant", strings.NewReader(body)))
	if w.Code != nethttp.StatusUnauthorized {
		t.Fatalf("unauthenticated status=%d", w.Code)
	}

	tok, err := auth.MintServiceToken()
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	req := httptest.NewRequest(nethttp.MethodPost, "/api/assistant/stages/run-assistant", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != nethttp.StatusOK {
		t.Fatalf("authenticated status=%d body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(nethttp.MethodGet, "/api/assistant/stages/run-assistant", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != nethttp.StatusMethodNotAllowed {
		t.Fatalf("GET on stage status=%d", w.Code)
	}
}

func TestServerShutdownBeforeRun(t *testing.T) {
	var s *Server
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil server shutdown: %v", err)
	}
}
