package stagerun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/dagra27407/spinalith-site-sub000/internal/platform/ctxutil"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

type fakeStages struct {
	gotStage string
	gotID    uuid.UUID
	gotAuth  *ctxutil.AuthData
	err      error
}

func (f *fakeStages) RunStage(ctx context.Context, stage string, id uuid.UUID) (services.StageEnvelope, error) {
	f.gotStage, f.gotID, f.gotAuth = stage, id, ctxutil.GetAuthData(ctx)
	if f.err != nil {
		return services.StageEnvelope{}, f.err
	}
	return services.StageEnvelope{Outcome: "advanced", Status: "CheckLoopBatch", Next: "process-batch", ElapsedTime: "0.010s"}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestWorkflowRunsStageActivity(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	stages := &fakeStages{}
	acts := &Activities{Log: testLogger(t), Stages: stages}
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRun})

	id := uuid.New()
	env.ExecuteWorkflow(WorkflowName, Input{Stage: "run-assistant", RequestID: id.String(), Token: "tok"})

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow not completed")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var out Result
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("result: %v", err)
	}
	if out.Outcome != "advanced" || out.Next != "process-batch" {
		t.Fatalf("out=%+v", out)
	}
	if stages.gotStage != "run-assistant" || stages.gotID != id {
		t.Fatalf("stage=%s id=%s", stages.gotStage, stages.gotID)
	}
	if stages.gotAuth == nil || stages.gotAuth.Token != "tok" {
		t.Fatalf("token not forwarded: %+v", stages.gotAuth)
	}
}

func TestWorkflowRejectsEmptyInput(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.ExecuteWorkflow(WorkflowName, Input{})
	if err := env.GetWorkflowError(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWorkflowSurfacesActivityFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	acts := &Activities{Stages: &fakeStages{err: errors.New("db down")}}
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRun})
	env.ExecuteWorkflow(WorkflowName, Input{Stage: "process-batch", RequestID: uuid.New().String()})
	if err := env.GetWorkflowError(); err == nil {
		t.Fatalf("expected activity failure to fail the workflow")
	}
}

func TestActivityMintsTokenWhenForwardedOneIsBad(t *testing.T) {
	log := testLogger(t)
	auth := services.NewAuthService(log, "secret", time.Minute)
	stages := &fakeStages{}
	acts := &Activities{Log: log, Stages: stages, Auth: auth}

	if _, err := acts.Run(context.Background(), Input{Stage: "run-assistant", RequestID: uuid.New().String(), Token: "expired.or.garbage"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stages.gotAuth == nil || stages.gotAuth.Subject != services.ServiceSubject || stages.gotAuth.Token == "expired.or.garbage" {
		t.Fatalf("auth=%+v", stages.gotAuth)
	}

	if _, err := acts.Run(context.Background(), Input{Stage: "run-assistant", RequestID: "nope"}); err == nil {
		t.Fatalf("expected invalid request id error")
	}
}

func TestWorkflowID(t *testing.T) {
	if got := WorkflowID("abc", "process-batch", 7); got != "abc:process-batch:7" {
		t.Fatalf("got %s", got)
	}
}
