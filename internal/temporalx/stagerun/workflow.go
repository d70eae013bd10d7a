package stagerun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs exactly one pipeline stage. The stage itself hands off to
// the next one through the configured router, so the workflow never loops.
func Workflow(ctx workflow.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.Stage) == "" || strings.TrimSpace(in.RequestID) == "" {
		return Result{}, fmt.Errorf("stagerun: missing stage or request_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		// Replaying a half-finished stage could post a duplicate message; the
		// sweeper owns retries.
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityRun, in).Get(ctx, &out); err != nil {
		return out, err
	}
	workflow.GetLogger(ctx).Info("stage workflow finished",
		"stage", in.Stage,
		"request_id", in.RequestID,
		"outcome", out.Outcome,
		"status", out.Status,
	)
	return out, nil
}
