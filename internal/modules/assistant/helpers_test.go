package assistant

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagra27407/spinalith-site-sub000/internal/clients/llm"
	assistantrepo "github.com/dagra27407/spinalith-site-sub000/internal/data/repos/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos/testutil"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
)

type testEnv struct {
	db       *gorm.DB
	store    *Store
	records  assistantrepo.ControlRecordRepo
	configs  assistantrepo.AssistantConfigRepo
	mappings assistantrepo.PhaseMappingRepo
	recorder *captureRecorder
	bus      *captureBus
	registry *Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	env := &testEnv{
		db:       db,
		records:  assistantrepo.NewControlRecordRepo(db, log),
		configs:  assistantrepo.NewAssistantConfigRepo(db, log),
		mappings: assistantrepo.NewPhaseMappingRepo(db, log),
		recorder: &captureRecorder{},
		bus:      &captureBus{},
		registry: reg,
	}
	env.store = NewStore(log, env.records, env.recorder, env.bus)
	return env
}

func (e *testEnv) createRecord(t *testing.T, rec *types.ControlRecord) *types.ControlRecord {
	t.Helper()
	if rec.RetryCount == nil {
		zero := 0
		rec.RetryCount = &zero
	}
	if _, err := e.records.Create(dbctx.Context{Ctx: context.Background()}, []*types.ControlRecord{rec}); err != nil {
		t.Fatalf("create record: %v", err)
	}
	return rec
}

func (e *testEnv) reload(t *testing.T, rec *types.ControlRecord) *types.ControlRecord {
	t.Helper()
	got, err := e.records.GetByID(dbctx.Context{Ctx: context.Background()}, rec.ID)
	if err != nil || got == nil {
		t.Fatalf("reload: err=%v got=%v", err, got)
	}
	return got
}

type captureRecorder struct {
	mu       sync.Mutex
	calls    []llm.CallRecord
	statuses []string
	errors   []ErrorEvent
}

func (c *captureRecorder) RecordCall(_ context.Context, rec llm.CallRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, rec)
}

func (c *captureRecorder) RecordStatus(_ context.Context, _ uuid.UUID, _ string, to string, _ int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, to)
}

func (c *captureRecorder) RecordError(_ context.Context, ev ErrorEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, ev)
}

func (c *captureRecorder) Close() {}

func (c *captureRecorder) errorCodes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.errors))
	for _, ev := range c.errors {
		out = append(out, ev.Code)
	}
	return out
}

type captureBus struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (b *captureBus) PublishStatus(_ context.Context, ev StatusEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

// scriptedExec replays queued results per phase; the last result repeats.
type scriptedExec struct {
	mu      sync.Mutex
	calls   []string
	scripts map[string][]PhaseResult
}

func newScriptedExec() *scriptedExec {
	return &scriptedExec{scripts: map[string][]PhaseResult{}}
}

func (s *scriptedExec) on(phase string, results ...PhaseResult) *scriptedExec {
	s.scripts[phase] = append(s.scripts[phase], results...)
	return s
}

func (s *scriptedExec) ExecutePhase(_ context.Context, phase string, rc RunContext) (PhaseResult, RunContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, phase)
	q := s.scripts[phase]
	if len(q) == 0 {
		return PhaseResult{Err: ErrPhaseMappingNotFound}, rc
	}
	res := q[0]
	if len(q) > 1 {
		s.scripts[phase] = q[1:]
	}
	if !res.Success {
		return res, rc
	}
	object, _ := res.Data["object"].(string)
	id, _ := res.Data["id"].(string)
	return res, rc.withObject(object, id)
}

func (s *scriptedExec) count(phase string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == phase {
			n++
		}
	}
	return n
}

func okResult(data map[string]any) PhaseResult {
	return PhaseResult{Success: true, StatusCode: 200, Data: data}
}

func runStatusResult(status string) PhaseResult {
	return okResult(map[string]any{"object": "thread.run", "id": "run_1", "status": status})
}

func messagesResult(text string) PhaseResult {
	return okResult(map[string]any{
		"object": "list",
		"data": []any{
			map[string]any{
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "text", "text": map[string]any{"value": text}},
				},
			},
		},
	})
}

func dbcFor() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}
