package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/httpx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// Stage outcomes reported to the trigger caller.
const (
	OutcomeAdvanced    = "advanced"
	OutcomeRecoverable = "recoverable"
	OutcomeHalted      = "halted"
	OutcomeSkipped     = "skipped"
	OutcomeConflict    = "conflict"
)

type UsecasesDeps struct {
	Log      *logger.Logger
	Store    *Store
	Exec     PhaseExecutor
	Poller   *Poller
	Batch    *BatchEngine
	Recorder ActivityRecorder
	Now      func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type StageInput struct {
	Record    *types.ControlRecord
	AuthToken string
}

type StageOutput struct {
	Outcome string
	Message string
	Status  string
	// Next is the stage the router should invoke, if any.
	Next string
}

// Run executes one stage invocation against the record.
func (u Usecases) Run(ctx context.Context, stage string, in StageInput) (StageOutput, error) {
	rec := in.Record
	if rec == nil {
		return StageOutput{}, fmt.Errorf("nil control record")
	}
	if !IsStage(stage) {
		return StageOutput{}, fmt.Errorf("unknown stage %q", stage)
	}
	if !CanEnter(stage, rec.Status) {
		return StageOutput{
			Outcome: OutcomeSkipped,
			Status:  rec.Status,
			Message: fmt.Sprintf("stage %s does not run from status %q", stage, rec.Status),
		}, nil
	}

	rc := NewRunContext(rec, in.AuthToken, u.deps.Now())
	var err error
	switch stage {
	case StageRunAssistant:
		err = u.runAssistant(ctx, rec, rc)
	case StageProcessBatch:
		_, err = u.deps.Batch.ProcessBatch(ctx, rec)
	case StageRequestNextBatch:
		err = u.postFollowUp(ctx, stage, rec, rc, PhaseRequestNextBatch, StatusNextBatchRequested)
	case StageResendLastResponse:
		err = u.postFollowUp(ctx, stage, rec, rc, PhaseResendLastResponse, StatusResendRequested)
	}
	if errors.Is(err, ErrConcurrentUpdate) {
		return StageOutput{
			Outcome: OutcomeConflict,
			Status:  rec.Status,
			Message: "control record was updated by another invocation",
		}, nil
	}
	if err != nil {
		return StageOutput{Outcome: OutcomeHalted, Status: rec.Status, Message: err.Error()}, err
	}
	return summarize(stage, rec.Status), nil
}

func summarize(stage, status string) StageOutput {
	out := StageOutput{Status: status}
	switch {
	case IsHalted(status) || status == StatusMaxRetryAttemptsReached:
		out.Outcome = OutcomeHalted
	case status == StatusPollingNeeded || status == StatusRetrieveNeeded || status == StatusPotentialRestart:
		out.Outcome = OutcomeRecoverable
	default:
		out.Outcome = OutcomeAdvanced
	}
	switch status {
	case StatusCheckLoopBatch, StatusAwaitingNextBatch, StatusResendLastResponse, StatusParseResponse:
		out.Next, _ = StageFor(status)
	}
	out.Message = fmt.Sprintf("%s finished with status %s", stage, status)
	return out
}

type conversationStep struct {
	phase  string
	status string
	column string
	id     func(RunContext) string
}

var conversationSteps = []conversationStep{
	{PhaseInitiateConversation, StatusThreadCreated, ColThreadID, func(rc RunContext) string { return rc.ThreadID }},
	{PhasePostMessage, StatusMessagePosted, ColMessageID, func(rc RunContext) string { return rc.MessageID }},
	{PhaseStartRun, StatusRunStarted, ColRunID, func(rc RunContext) string { return rc.RunID }},
}

// runAssistant resumes from the first phase whose id is still missing.
func (u Usecases) runAssistant(ctx context.Context, rec *types.ControlRecord, rc RunContext) error {
	for _, step := range conversationSteps {
		if step.id(rc) != "" {
			continue
		}
		next, ok, err := u.advance(ctx, StageRunAssistant, rec, rc, step)
		if err != nil || !ok {
			return err
		}
		rc = next
	}
	return u.pollAndRetrieve(ctx, StageRunAssistant, rec, rc)
}

// advance runs one id-producing phase and persists the id. ok is false when
// the phase failed and a stopping status was written.
func (u Usecases) advance(ctx context.Context, stage string, rec *types.ControlRecord, rc RunContext, step conversationStep) (RunContext, bool, error) {
	res, next := u.deps.Exec.ExecutePhase(ctx, step.phase, rc)
	if !res.Success {
		return rc, false, u.fail(ctx, stage, step.phase, rec, res)
	}
	id := step.id(next)
	if id == "" || id == step.id(rc) {
		status := StatusPotentialRestart
		if res.SoftError {
			status = HaltProviderError
		}
		u.deps.Recorder.RecordError(ctx, ErrorEvent{
			RequestID: rec.ID,
			Stage:     stage,
			Phase:     step.phase,
			Code:      "missing_id",
			Message:   "provider response carried no new id",
			Context:   map[string]any{"status_code": res.StatusCode, "soft_error": res.SoftError},
		})
		return rc, false, u.deps.Store.SetStatus(ctx, rec, status)
	}

	updates := map[string]any{step.column: id, ColStatus: step.status}
	switch step.phase {
	case PhaseInitiateConversation:
		// A new thread starts a new run of chunks.
		updates[ColMessageID] = ""
		updates[ColRunID] = ""
		updates[ColIterationJSON] = ""
		updates[ColConcatenatedJSON] = ""
		updates[ColFinalJSON] = ""
		updates[ColRetryCount] = 0
		next.MessageID, next.RunID = "", ""
	case PhasePostMessage, PhaseRequestNextBatch, PhaseResendLastResponse:
		updates[ColRunID] = ""
		next.RunID = ""
	}
	if err := u.deps.Store.Update(ctx, rec, updates); err != nil {
		return rc, false, err
	}
	return next, true, nil
}

func (u Usecases) fail(ctx context.Context, stage, phase string, rec *types.ControlRecord, res PhaseResult) error {
	status := StatusPotentialRestart
	code := "transport"
	var sc httpx.HTTPStatusCoder
	switch {
	case IsConfigError(res.Err):
		status = HaltMissingConfiguration
		code = "configuration"
	case errors.As(res.Err, &sc) && !httpx.IsRetryableHTTPStatus(sc.HTTPStatusCode()):
		// 4xx from the provider will not heal on replay.
		status = HaltProviderError
		code = "provider"
	}
	msg := "phase failed"
	if res.Err != nil {
		msg = res.Err.Error()
	}
	u.deps.Log.Warn("phase failed", "stage", stage, "phase", phase, "request_id", rec.ID, "status", status, "error", res.Err)
	u.deps.Recorder.RecordError(ctx, ErrorEvent{
		RequestID: rec.ID,
		Stage:     stage,
		Phase:     phase,
		Code:      code,
		Message:   msg,
		Context:   map[string]any{"status_code": res.StatusCode},
	})
	return u.deps.Store.SetStatus(ctx, rec, status)
}

func (u Usecases) pollAndRetrieve(ctx context.Context, stage string, rec *types.ControlRecord, rc RunContext) error {
	out := u.deps.Poller.PollUntilTerminal(ctx, rc, rec)
	if errors.Is(out.Err, ErrConcurrentUpdate) {
		return ErrConcurrentUpdate
	}
	if !out.Success {
		status := StatusPollingNeeded
		if out.Reason == PollUnknownError {
			status = StatusPotentialRestart
			if IsConfigError(out.Err) {
				status = HaltMissingConfiguration
			}
		}
		u.deps.Recorder.RecordError(ctx, ErrorEvent{
			RequestID: rec.ID,
			Stage:     stage,
			Phase:     PhasePollRunStatus,
			Code:      "poll_" + out.Reason,
			Message:   fmt.Sprintf("polling stopped after %d attempts: %s", out.Attempts, out.Reason),
		})
		return u.deps.Store.SetStatus(ctx, rec, status)
	}
	if out.RunStatus != RunCompleted {
		return u.deps.Store.SetStatus(ctx, rec, HaltForRun(out.RunStatus))
	}

	res, _ := u.deps.Exec.ExecutePhase(ctx, PhaseRetrieveResponse, rc)
	if !res.Success {
		if IsConfigError(res.Err) {
			return u.fail(ctx, stage, PhaseRetrieveResponse, rec, res)
		}
		return u.deps.Store.SetStatus(ctx, rec, StatusRetrieveNeeded)
	}
	text, ok := LatestAssistantText(res.Data)
	if !ok {
		u.deps.Recorder.RecordError(ctx, ErrorEvent{
			RequestID: rec.ID,
			Stage:     stage,
			Phase:     PhaseRetrieveResponse,
			Code:      "empty_response",
			Message:   "no assistant message text in response",
		})
		return u.deps.Store.SetStatus(ctx, rec, StatusRetrieveNeeded)
	}
	return u.deps.Store.Update(ctx, rec, map[string]any{
		ColIterationJSON: text,
		ColStatus:        StatusCheckLoopBatch,
	})
}

// postFollowUp posts a continue or resend message on the existing thread and
// then runs the assistant on it.
func (u Usecases) postFollowUp(ctx context.Context, stage string, rec *types.ControlRecord, rc RunContext, phase, status string) error {
	if rc.ThreadID == "" {
		return u.deps.Store.SetStatus(ctx, rec, HaltMissingThread)
	}
	step := conversationStep{phase, status, ColMessageID, func(rc RunContext) string { return rc.MessageID }}
	next, ok, err := u.advance(ctx, stage, rec, rc, step)
	if err != nil || !ok {
		return err
	}
	next, ok, err = u.advance(ctx, stage, rec, next, conversationSteps[2])
	if err != nil || !ok {
		return err
	}
	return u.pollAndRetrieve(ctx, stage, rec, next)
}

// LatestAssistantText pulls the text of the newest assistant message from a
// list-messages response.
func LatestAssistantText(data map[string]any) (string, bool) {
	items, _ := data["data"].([]any)
	for _, it := range items {
		msg, _ := it.(map[string]any)
		if msg == nil {
			continue
		}
		if role, ok := msg["role"].(string); ok && role != "assistant" {
			continue
		}
		content, _ := msg["content"].([]any)
		for _, c := range content {
			part, _ := c.(map[string]any)
			text, _ := part["text"].(map[string]any)
			if v, ok := text["value"].(string); ok && v != "" {
				return v, true
			}
		}
	}
	return "", false
}
