package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

type seenRequest struct {
	path string
	auth string
	body map[string]string
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestHTTPInvokerPostsToStageEndpoint(t *testing.T) {
	var mu sync.Mutex
	var seen []seenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		seen = append(seen, seenRequest{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		mu.Unlock()
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	inv := NewHTTPInvoker(newTestLogger(t), srv.Client(), HTTPConfig{
		BaseURL:          srv.URL + "/",
		ParseResponseURL: srv.URL + "/hooks/parse",
		Timeout:          5 * time.Second,
	})

	id := uuid.New()
	if err := inv.Invoke(context.Background(), services.StageCall{Stage: assistant.StageProcessBatch, RequestID: id, Token: "tok"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if err := inv.Invoke(context.Background(), services.StageCall{Stage: assistant.StageParseResponse, RequestID: id}); err != nil {
		t.Fatalf("Invoke parse: %v", err)
	}
	inv.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("seen=%d", len(seen))
	}
	byPath := map[string]seenRequest{}
	for _, s := range seen {
		byPath[s.path] = s
	}
	stage, ok := byPath["/api/assistant/stages/process-batch"]
	if !ok {
		t.Fatalf("process-batch not called: %+v", seen)
	}
	if stage.auth != "Bearer tok" || stage.body["request_id"] != id.String() {
		t.Fatalf("stage request=%+v", stage)
	}
	parse, ok := byPath["/hooks/parse"]
	if !ok {
		t.Fatalf("parse hook not called: %+v", seen)
	}
	if parse.auth != "" {
		t.Fatalf("no token means no auth header, got %q", parse.auth)
	}
}

func TestHTTPInvokerURLFor(t *testing.T) {
	inv := NewHTTPInvoker(newTestLogger(t), nil, HTTPConfig{BaseURL: "http://svc"})
	if got, err := inv.URLFor(assistant.StageRunAssistant); err != nil || got != "http://svc/api/assistant/stages/run-assistant" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if _, err := inv.URLFor(assistant.StageParseResponse); err == nil {
		t.Fatalf("expected error without parse url")
	}
	if _, err := inv.URLFor("nope"); err == nil {
		t.Fatalf("expected error for unknown stage")
	}
	empty := NewHTTPInvoker(newTestLogger(t), nil, HTTPConfig{})
	if err := empty.Invoke(context.Background(), services.StageCall{Stage: assistant.StageRunAssistant, RequestID: uuid.New()}); err == nil {
		t.Fatalf("expected error without base url")
	}
}

func TestHTTPInvokerFailureIsLoggedNotReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	inv := NewHTTPInvoker(newTestLogger(t), srv.Client(), HTTPConfig{BaseURL: srv.URL})
	if err := inv.Invoke(context.Background(), services.StageCall{Stage: assistant.StageRunAssistant, RequestID: uuid.New()}); err != nil {
		t.Fatalf("dispatch errors are async, got %v", err)
	}
	inv.Wait()
}
