package stagerun

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

// Invoker starts one Workflow per stage hop. A duplicate hop (same request,
// stage and version) is rejected by temporal and treated as success unless
// the earlier run failed.
type Invoker struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewInvoker(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string) (*Invoker, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	tq := strings.TrimSpace(taskQueue)
	if tq == "" {
		tq = "assistant-stages"
	}
	return &Invoker{log: log.With("component", "TemporalStageRouter"), tc: tc, taskQueue: tq}, nil
}

func (i *Invoker) Invoke(ctx context.Context, call services.StageCall) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(call.RequestID.String(), call.Stage, call.Version),
		TaskQueue:             i.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	in := Input{Stage: call.Stage, RequestID: call.RequestID.String(), Token: call.Token}
	run, err := i.tc.ExecuteWorkflow(ctx, opts, WorkflowName, in)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			i.log.Debug("stage workflow already started", "workflow_id", opts.ID)
			return nil
		}
		return fmt.Errorf("start stage workflow %s: %w", opts.ID, err)
	}
	i.log.Debug("stage workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
