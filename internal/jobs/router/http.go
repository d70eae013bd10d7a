package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/httpx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

type HTTPConfig struct {
	// BaseURL is where the stage endpoints live, e.g. http://localhost:8080.
	BaseURL string
	// ParseResponseURL receives the downstream parse-response hop.
	ParseResponseURL string
	Timeout          time.Duration
}

// HTTPInvoker re-enters the pipeline by POSTing {request_id} to the next
// stage endpoint. Calls are fire-and-forget; the caller's invocation has
// already persisted the status the next hop starts from.
type HTTPInvoker struct {
	log    *logger.Logger
	client *http.Client
	cfg    HTTPConfig
	wg     sync.WaitGroup
}

func NewHTTPInvoker(log *logger.Logger, client *http.Client, cfg HTTPConfig) *HTTPInvoker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.ParseResponseURL = strings.TrimSpace(cfg.ParseResponseURL)
	return &HTTPInvoker{
		log:    log.With("component", "HTTPStageRouter"),
		client: client,
		cfg:    cfg,
	}
}

func (r *HTTPInvoker) URLFor(stage string) (string, error) {
	if stage == assistant.StageParseResponse {
		if r.cfg.ParseResponseURL == "" {
			return "", fmt.Errorf("PARSE_RESPONSE_URL not configured")
		}
		return r.cfg.ParseResponseURL, nil
	}
	if !assistant.IsStage(stage) {
		return "", fmt.Errorf("unknown stage %q", stage)
	}
	if r.cfg.BaseURL == "" {
		return "", fmt.Errorf("STAGE_BASE_URL not configured")
	}
	return r.cfg.BaseURL + "/api/assistant/stages/" + stage, nil
}

func (r *HTTPInvoker) Invoke(ctx context.Context, call services.StageCall) error {
	url, err := r.URLFor(call.Stage)
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]string{"request_id": call.RequestID.String()})
	if err != nil {
		return err
	}

	// The triggering request ends before the next stage does; keep the trace
	// but drop the cancellation.
	headers := http.Header{}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("stage dispatch panic", "stage", call.Stage, "request_id", call.RequestID, "panic", rec)
			}
		}()
		sendCtx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
		defer cancel()
		if err := r.post(sendCtx, url, body, headers, call.Token); err != nil {
			r.log.Warn("stage dispatch failed", "stage", call.Stage, "request_id", call.RequestID, "url", url, "error", err)
			return
		}
		r.log.Debug("stage dispatched", "stage", call.Stage, "request_id", call.RequestID)
	}()
	return nil
}

// Wait blocks until in-flight dispatches finish.
func (r *HTTPInvoker) Wait() { r.wg.Wait() }

func (r *HTTPInvoker) post(ctx context.Context, url string, body []byte, headers http.Header, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("stage endpoint http %d: %s", resp.StatusCode, httpx.Preview(string(raw), 300))
	}
	return nil
}
