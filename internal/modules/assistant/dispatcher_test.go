package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/dagra27407/spinalith-site-sub000/internal/clients/llm"
	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos/testutil"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
)

type fakeLLM struct {
	reqs []llm.Request
	resp llm.Result
}

func (f *fakeLLM) Send(_ context.Context, req llm.Request) llm.Result {
	f.reqs = append(f.reqs, req)
	return f.resp
}

func newTestDispatcher(t *testing.T, env *testEnv, client llm.Client) *Dispatcher {
	return NewDispatcher(DispatcherDeps{
		Log:      testutil.Logger(t),
		Mappings: env.mappings,
		Configs:  env.configs,
		LLM:      client,
		Creds:    llm.Credentials{"openai": "sk-test"},
		Registry: env.registry,
		Recorder: env.recorder,
	})
}

func seedThreadsMappings(t *testing.T, env *testEnv) {
	ctx := context.Background()
	base := "https://api.openai.com/v1"
	testutil.SeedPhaseMapping(t, ctx, env.db, DefaultLogicKey, PhaseInitiateConversation, "POST", base+"/threads")
	testutil.SeedPhaseMapping(t, ctx, env.db, DefaultLogicKey, PhasePostMessage, "POST", base+"/threads/{{thread_id}}/messages")
	testutil.SeedPhaseMapping(t, ctx, env.db, DefaultLogicKey, PhaseStartRun, "POST", base+"/threads/{{thread_id}}/runs")
	testutil.SeedPhaseMapping(t, ctx, env.db, DefaultLogicKey, PhasePollRunStatus, "GET", base+"/threads/{{thread_id}}/runs/{{run_id}}")
	testutil.SeedPhaseMapping(t, ctx, env.db, DefaultLogicKey, PhaseRequestNextBatch, "POST", base+"/threads/{{thread_id}}/messages")
}

func TestExecutePhaseCapturesThreadID(t *testing.T) {
	env := newTestEnv(t)
	seedThreadsMappings(t, env)
	client := &fakeLLM{resp: llm.Result{Success: true, StatusCode: 200, Data: map[string]any{"object": "thread", "id": "thread_abc"}}}
	d := newTestDispatcher(t, env, client)

	rc := RunContext{AssistantName: "WF_ChapterDraftingAssistant"}
	res, next := d.ExecutePhase(context.Background(), PhaseInitiateConversation, rc)
	if !res.Success {
		t.Fatalf("expected success, err=%v", res.Err)
	}
	if next.ThreadID != "thread_abc" {
		t.Fatalf("thread id not captured: %+v", next)
	}
	if rc.ThreadID != "" {
		t.Fatalf("input context must not change")
	}
	req := client.reqs[0]
	if req.Headers["Authorization"] != "Bearer sk-test" || req.Headers["OpenAI-Beta"] != "assistants=v2" {
		t.Fatalf("headers = %v", req.Headers)
	}
}

func TestExecutePhasePostMessageBody(t *testing.T) {
	env := newTestEnv(t)
	seedThreadsMappings(t, env)
	client := &fakeLLM{resp: llm.Result{Success: true, Data: map[string]any{"object": "thread.message", "id": "msg_1"}}}
	d := newTestDispatcher(t, env, client)

	rc := RunContext{ThreadID: "thread_1", Prompt: "Draft chapters.", Payload: `{"chapters":[1]}`}
	res, next := d.ExecutePhase(context.Background(), PhasePostMessage, rc)
	if !res.Success || next.MessageID != "msg_1" {
		t.Fatalf("res=%+v next=%+v", res, next)
	}
	req := client.reqs[0]
	if req.URL != "https://api.openai.com/v1/threads/thread_1/messages" {
		t.Fatalf("url = %s", req.URL)
	}
	body := req.Body.(map[string]any)
	if body["role"] != "user" || body["content"] != "Draft chapters.\n\n{\"chapters\":[1]}" {
		t.Fatalf("body = %v", body)
	}
}

func TestExecutePhaseStartRunBody(t *testing.T) {
	env := newTestEnv(t)
	seedThreadsMappings(t, env)
	temp := 0.4
	if err := env.configs.Upsert(dbcFor(), &types.AssistantConfig{
		AssistantName: "WF_ChapterDraftingAssistant",
		AssistantID:   "asst_9",
		Model:         "gpt-4o",
		Temperature:   &temp,
	}); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	client := &fakeLLM{resp: llm.Result{Success: true, Data: map[string]any{"object": "thread.run", "id": "run_7"}}}
	d := newTestDispatcher(t, env, client)

	rc := RunContext{AssistantName: "WF_ChapterDraftingAssistant", ThreadID: "thread_1"}
	_, next := d.ExecutePhase(context.Background(), PhaseStartRun, rc)
	if next.RunID != "run_7" {
		t.Fatalf("run id not captured: %+v", next)
	}
	body := client.reqs[0].Body.(map[string]any)
	if body["assistant_id"] != "asst_9" || body["model"] != "gpt-4o" || body["temperature"] != 0.4 {
		t.Fatalf("body = %v", body)
	}
}

func TestExecutePhaseConfigurationFailures(t *testing.T) {
	env := newTestEnv(t)
	seedThreadsMappings(t, env)
	client := &fakeLLM{resp: llm.Result{Success: true}}
	d := newTestDispatcher(t, env, client)
	ctx := context.Background()

	t.Run("missing mapping", func(t *testing.T) {
		res, _ := d.ExecutePhase(ctx, PhaseRetrieveResponse, RunContext{ThreadID: "t"})
		if res.Success || !errors.Is(res.Err, ErrPhaseMappingNotFound) {
			t.Fatalf("res = %+v", res)
		}
	})
	t.Run("missing prerequisite id", func(t *testing.T) {
		res, _ := d.ExecutePhase(ctx, PhasePollRunStatus, RunContext{ThreadID: "t"})
		if !errors.Is(res.Err, ErrMissingPrerequisiteID) {
			t.Fatalf("res = %+v", res)
		}
	})
	t.Run("missing assistant config", func(t *testing.T) {
		res, _ := d.ExecutePhase(ctx, PhaseStartRun, RunContext{ThreadID: "t", AssistantName: "WF_Nobody"})
		if !errors.Is(res.Err, ErrAssistantConfigNotFound) {
			t.Fatalf("res = %+v", res)
		}
	})
	t.Run("missing assistant id", func(t *testing.T) {
		if err := env.configs.Upsert(dbcFor(), &types.AssistantConfig{AssistantName: "WF_NoID"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
		res, _ := d.ExecutePhase(ctx, PhaseStartRun, RunContext{ThreadID: "t", AssistantName: "WF_NoID"})
		if !errors.Is(res.Err, ErrMissingAssistantID) {
			t.Fatalf("res = %+v", res)
		}
	})
	if len(client.reqs) != 0 {
		t.Fatalf("no provider call should be made, got %d", len(client.reqs))
	}
	if len(env.recorder.errorCodes()) != 4 {
		t.Fatalf("each setup failure should be recorded, got %v", env.recorder.errorCodes())
	}
}

func TestExecutePhaseContinuePromptFallsBackToRegistry(t *testing.T) {
	env := newTestEnv(t)
	seedThreadsMappings(t, env)
	testutil.SeedAssistantConfig(t, context.Background(), env.db, "WF_ChapterDraftingAssistant", "chapterBatch")
	if err := env.db.Model(&types.AssistantConfig{}).Where("assistant_name = ?", "WF_ChapterDraftingAssistant").
		Update("continue_prompt", "").Error; err != nil {
		t.Fatalf("clear prompt: %v", err)
	}
	client := &fakeLLM{resp: llm.Result{Success: true, Data: map[string]any{"object": "thread.message", "id": "msg_2"}}}
	d := newTestDispatcher(t, env, client)

	_, next := d.ExecutePhase(context.Background(), PhaseRequestNextBatch, RunContext{ThreadID: "t", AssistantName: "WF_ChapterDraftingAssistant"})
	if next.MessageID != "msg_2" {
		t.Fatalf("message id not captured")
	}
	fam, _ := env.registry.Lookup("WF_ChapterDraftingAssistant")
	if got := client.reqs[0].Body.(map[string]any)["content"]; got != fam.ContinuePrompt {
		t.Fatalf("content = %v", got)
	}
}

func TestSubstituteIDs(t *testing.T) {
	got, err := substituteIDs("/threads/{{thread_id}}/runs/{{run_id}}", RunContext{ThreadID: "t1", RunID: "r1"})
	if err != nil || got != "/threads/t1/runs/r1" {
		t.Fatalf("got %q err %v", got, err)
	}
	if _, err := substituteIDs("/threads/{{thread_id}}", RunContext{}); !errors.Is(err, ErrMissingPrerequisiteID) {
		t.Fatalf("expected missing id error, got %v", err)
	}
	if got, err := substituteIDs("/threads", RunContext{}); err != nil || got != "/threads" {
		t.Fatalf("plain template: %q %v", got, err)
	}
}
