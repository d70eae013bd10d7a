package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dagra27407/spinalith-site-sub000/internal/platform/httpx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// PhasePollRunStatus is the phase whose in-flight responses are routed to the polling log.
const PhasePollRunStatus = "PollRunStatus"

// Request is one fully-built provider call.
type Request struct {
	RequestID uuid.UUID
	Phase     string
	Provider  string
	Method    string
	URL       string
	Headers   map[string]string
	// Body is JSON-encoded when non-nil.
	Body any
}

// Result is what the adapter reports back. Success means the call completed
// with a 2xx JSON body; application errors inside the body are left to the caller.
type Result struct {
	Success    bool
	StatusCode int
	Data       map[string]any
	SoftError  bool
	Duration   time.Duration
	Err        error
}

// CallRecord is the telemetry view of a finished call.
type CallRecord struct {
	RequestID    uuid.UUID
	Phase        string
	Provider     string
	Method       string
	URL          string
	Headers      map[string]string
	Body         any
	ResponseBody string
	StatusCode   int
	Duration     time.Duration
	SoftError    bool
	Polling      bool
	Err          error
}

// CallRecorder receives a record for every call. Implementations must not block.
type CallRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord)
}

type Client interface {
	Send(ctx context.Context, req Request) Result
}

type Config struct {
	Timeout time.Duration
	// MaxLoggedBody bounds response bodies copied into call records.
	MaxLoggedBody int
}

type client struct {
	log        *logger.Logger
	httpClient *http.Client
	recorder   CallRecorder
	maxBody    int
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider http %d: %s", e.StatusCode, httpx.Preview(e.Body, 300))
}

func (e *statusError) HTTPStatusCode() int { return e.StatusCode }

// NewClient builds the adapter. httpClient may be nil; recorder may be nil.
func NewClient(log *logger.Logger, cfg Config, httpClient *http.Client, recorder CallRecorder) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxLoggedBody <= 0 {
		cfg.MaxLoggedBody = 64 * 1024
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &client{
		log:        log.With("client", "llm"),
		httpClient: httpClient,
		recorder:   recorder,
		maxBody:    cfg.MaxLoggedBody,
	}
}

func (c *client) Send(ctx context.Context, req Request) Result {
	ctx, span := otel.Tracer("llm").Start(ctx, "llm.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", req.Provider),
		attribute.String("llm.phase", req.Phase),
		attribute.String("http.method", req.Method),
	)

	start := time.Now()
	status, raw, err := c.doOnce(ctx, req)
	dur := time.Since(start)

	res := Result{StatusCode: status, Duration: dur}
	rec := CallRecord{
		RequestID:    req.RequestID,
		Phase:        req.Phase,
		Provider:     req.Provider,
		Method:       req.Method,
		URL:          req.URL,
		Headers:      req.Headers,
		Body:         req.Body,
		ResponseBody: httpx.Preview(string(raw), c.maxBody),
		StatusCode:   status,
		Duration:     dur,
	}

	if err == nil {
		var data map[string]any
		if jerr := json.Unmarshal(raw, &data); jerr != nil {
			err = fmt.Errorf("decode provider response: %w", jerr)
		} else {
			delete(data, "instructions")
			res.Data = data
			if trimmed, merr := json.Marshal(data); merr == nil {
				rec.ResponseBody = httpx.Preview(string(trimmed), c.maxBody)
			}
		}
	}

	if err != nil {
		res.Err = err
		rec.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Warn("provider call failed",
			"phase", req.Phase,
			"provider", req.Provider,
			"url", req.URL,
			"status", status,
			"duration_ms", dur.Milliseconds(),
			"body_preview", httpx.Preview(string(raw), 300),
			"error", err,
		)
		c.record(ctx, rec)
		return res
	}

	res.Success = true
	if e, ok := res.Data["error"]; ok && e != nil {
		res.SoftError = true
		rec.SoftError = true
		rec.StatusCode = http.StatusInternalServerError
		c.log.Warn("provider returned soft error", "phase", req.Phase, "provider", req.Provider, "error_field", e)
	}
	rec.Polling = isActivePoll(req.Phase, res.Data)
	span.SetAttributes(attribute.Int("http.status_code", status), attribute.Bool("llm.soft_error", res.SoftError))
	c.record(ctx, rec)
	return res
}

func (c *client) doOnce(ctx context.Context, req Request) (int, []byte, error) {
	var body io.Reader
	if req.Body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(req.Body); err != nil {
			return 0, nil, err
		}
		body = &buf
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		return 0, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp.StatusCode, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, raw, &statusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp.StatusCode, raw, nil
}

func (c *client) record(ctx context.Context, rec CallRecord) {
	if c.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("call recorder panicked", "panic", r)
		}
	}()
	c.recorder.RecordCall(ctx, rec)
}

func isActivePoll(phase string, data map[string]any) bool {
	if phase != PhasePollRunStatus {
		return false
	}
	s, _ := data["status"].(string)
	switch s {
	case "queued", "in_progress", "cancelling":
		return true
	}
	return false
}
