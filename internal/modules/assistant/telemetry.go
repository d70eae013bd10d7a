package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/dagra27407/spinalith-site-sub000/internal/clients/llm"
	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/observability"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// ErrorEvent is one captured pipeline error.
type ErrorEvent struct {
	RequestID uuid.UUID
	Stage     string
	Phase     string
	Code      string
	Message   string
	Context   map[string]any
}

// ActivityRecorder is the logging port. Every method is best-effort and must
// return without waiting on storage.
type ActivityRecorder interface {
	llm.CallRecorder
	RecordStatus(ctx context.Context, requestID uuid.UUID, from, to string, version int64)
	RecordError(ctx context.Context, ev ErrorEvent)
	Close()
}

type NopRecorder struct{}

func (NopRecorder) RecordCall(context.Context, llm.CallRecord)                      {}
func (NopRecorder) RecordStatus(context.Context, uuid.UUID, string, string, int64) {}
func (NopRecorder) RecordError(context.Context, ErrorEvent)                        {}
func (NopRecorder) Close()                                                         {}

type activityItem struct {
	kind  string
	write func(dbc dbctx.Context) error
}

// AsyncRecorder writes activity rows from a single background goroutine fed
// by a bounded queue. A full queue drops the row.
type AsyncRecorder struct {
	log     *logger.Logger
	repo    repos.ActivityLogRepo
	queue   chan activityItem
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

func NewAsyncRecorder(log *logger.Logger, repo repos.ActivityLogRepo, queueSize int) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	r := &AsyncRecorder{
		log:     log.With("component", "ActivityRecorder"),
		repo:    repo,
		queue:   make(chan activityItem, queueSize),
		timeout: 5 * time.Second,
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

func (r *AsyncRecorder) Dropped() int64 { return r.dropped.Load() }

func (r *AsyncRecorder) loop() {
	defer r.wg.Done()
	for item := range r.queue {
		r.write(item)
	}
}

func (r *AsyncRecorder) write(item activityItem) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("activity write panicked", "kind", item.kind, "panic", rec)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := item.write(dbctx.Context{Ctx: ctx}); err != nil {
		r.log.Warn("activity write failed", "kind", item.kind, "error", err)
	}
}

func (r *AsyncRecorder) enqueue(item activityItem) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- item:
	default:
		r.dropped.Add(1)
		if m := observability.Current(); m != nil {
			m.IncActivityDropped(item.kind)
		}
		r.log.Warn("activity queue full, dropping row", "kind", item.kind)
	}
}

// Close stops accepting rows and waits for queued rows to be written.
func (r *AsyncRecorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *AsyncRecorder) RecordCall(_ context.Context, c llm.CallRecord) {
	var rid *uuid.UUID
	if c.RequestID != uuid.Nil {
		id := c.RequestID
		rid = &id
	}
	row := types.RequestLog{
		RequestID:      rid,
		Phase:          c.Phase,
		Provider:       c.Provider,
		Method:         c.Method,
		URL:            c.URL,
		RequestHeaders: toJSON(redactHeaders(c.Headers)),
		RequestBody:    toJSON(c.Body),
		ResponseBody:   c.ResponseBody,
		StatusCode:     c.StatusCode,
		DurationMS:     c.Duration.Milliseconds(),
		SoftError:      c.SoftError,
	}
	if c.Err != nil {
		row.ErrorMessage = c.Err.Error()
	}
	if m := observability.Current(); m != nil {
		m.ObserveLLMRequest(c.Provider, c.Phase, callOutcome(c), c.Duration)
	}
	if c.Polling {
		poll := types.PollingLog(row)
		r.enqueue(activityItem{kind: "polling", write: func(dbc dbctx.Context) error {
			return r.repo.CreatePollingLog(dbc, &poll)
		}})
		return
	}
	r.enqueue(activityItem{kind: "request", write: func(dbc dbctx.Context) error {
		return r.repo.CreateRequestLog(dbc, &row)
	}})
}

func (r *AsyncRecorder) RecordStatus(_ context.Context, requestID uuid.UUID, from, to string, version int64) {
	row := types.StatusLog{RequestID: requestID, FromStatus: from, ToStatus: to, Version: version}
	if m := observability.Current(); m != nil {
		m.IncStatusTransition(to)
	}
	r.enqueue(activityItem{kind: "status", write: func(dbc dbctx.Context) error {
		return r.repo.CreateStatusLog(dbc, &row)
	}})
}

func (r *AsyncRecorder) RecordError(_ context.Context, ev ErrorEvent) {
	var rid *uuid.UUID
	if ev.RequestID != uuid.Nil {
		id := ev.RequestID
		rid = &id
	}
	row := types.ErrorLog{
		RequestID: rid,
		Stage:     ev.Stage,
		Phase:     ev.Phase,
		Code:      ev.Code,
		Message:   ev.Message,
		Context:   toJSON(ev.Context),
	}
	r.enqueue(activityItem{kind: "error", write: func(dbc dbctx.Context) error {
		return r.repo.CreateErrorLog(dbc, &row)
	}})
}

func callOutcome(c llm.CallRecord) string {
	switch {
	case c.Err != nil:
		return "error"
	case c.SoftError:
		return "soft_error"
	}
	return "ok"
}

func redactHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		lk := strings.ToLower(k)
		if lk == "authorization" || strings.Contains(lk, "api-key") || strings.Contains(lk, "token") {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
