package assistant

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos/testutil"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
)

func newFakeClockPoller(t *testing.T, env *testEnv, exec PhaseExecutor, cfg PollConfig) (*Poller, *time.Time) {
	t.Helper()
	clock := time.Unix(1_700_000_000, 0)
	p := NewPoller(testutil.Logger(t), exec, env.store, cfg)
	p.now = func() time.Time { return clock }
	p.sleep = func(_ context.Context, d time.Duration) error {
		clock = clock.Add(d)
		return nil
	}
	return p, &clock
}

func pollingRecord(t *testing.T, env *testEnv) *types.ControlRecord {
	return env.createRecord(t, &types.ControlRecord{
		Status:          StatusRunStarted,
		WFAssistantName: "WF_ChapterDraftingAssistant",
		ThreadID:        "thread_1",
		MessageID:       "msg_1",
		RunID:           "run_1",
	})
}

func TestPollUntilTerminalCompletes(t *testing.T) {
	env := newTestEnv(t)
	rec := pollingRecord(t, env)
	exec := newScriptedExec().on(PhasePollRunStatus,
		runStatusResult(RunInProgress),
		runStatusResult(RunInProgress),
		runStatusResult(RunCompleted),
	)
	p, clock := newFakeClockPoller(t, env, exec, DefaultPollConfig())

	out := p.PollUntilTerminal(context.Background(), NewRunContext(rec, "", *clock), rec)
	if !out.Success || out.RunStatus != RunCompleted {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if n := exec.count(PhasePollRunStatus); n != 3 {
		t.Fatalf("expected 3 polls, got %d", n)
	}
	want := []string{RunStatus(RunInProgress), RunStatus(RunCompleted)}
	if !reflect.DeepEqual(env.recorder.statuses, want) {
		t.Fatalf("status writes = %v want %v", env.recorder.statuses, want)
	}
	if got := env.reload(t, rec).Status; got != RunStatus(RunCompleted) {
		t.Fatalf("persisted status = %q", got)
	}
}

func TestPollUntilTerminalMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	rec := pollingRecord(t, env)
	exec := newScriptedExec().on(PhasePollRunStatus, runStatusResult(RunInProgress))
	p, clock := newFakeClockPoller(t, env, exec, DefaultPollConfig())

	out := p.PollUntilTerminal(context.Background(), NewRunContext(rec, "", *clock), rec)
	if out.Success || out.Reason != PollMaxAttempts {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if n := exec.count(PhasePollRunStatus); n != 20 {
		t.Fatalf("expected 20 polls, got %d", n)
	}
	if len(env.recorder.statuses) != 1 {
		t.Fatalf("repeated status should be written once, got %v", env.recorder.statuses)
	}
}

func TestPollUntilTerminalTimesOut(t *testing.T) {
	env := newTestEnv(t)
	rec := pollingRecord(t, env)
	exec := newScriptedExec().on(PhasePollRunStatus, runStatusResult(RunQueued))
	p, clock := newFakeClockPoller(t, env, exec, PollConfig{Interval: 10 * time.Second, MaxAttempts: 20, Timeout: 60 * time.Second})

	out := p.PollUntilTerminal(context.Background(), NewRunContext(rec, "", *clock), rec)
	if out.Success || out.Reason != PollTimedOut {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Attempts != 6 {
		t.Fatalf("expected 6 attempts inside 60s, got %d", out.Attempts)
	}
}

func TestPollUntilTerminalMissingStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := pollingRecord(t, env)
	exec := newScriptedExec().on(PhasePollRunStatus, okResult(map[string]any{"object": "thread.run", "error": map[string]any{"message": "x"}}))
	p, clock := newFakeClockPoller(t, env, exec, DefaultPollConfig())

	out := p.PollUntilTerminal(context.Background(), NewRunContext(rec, "", *clock), rec)
	if out.Success || out.Reason != PollUnknownError {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if n := exec.count(PhasePollRunStatus); n != 1 {
		t.Fatalf("should stop after first poll, got %d", n)
	}
}

func TestPollUntilTerminalRetriesTransportFailures(t *testing.T) {
	env := newTestEnv(t)
	rec := pollingRecord(t, env)
	exec := newScriptedExec().on(PhasePollRunStatus,
		PhaseResult{Success: false},
		runStatusResult(RunFailed),
	)
	p, clock := newFakeClockPoller(t, env, exec, DefaultPollConfig())

	out := p.PollUntilTerminal(context.Background(), NewRunContext(rec, "", *clock), rec)
	if !out.Success || out.RunStatus != RunFailed || out.Attempts != 2 {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
