package assistant

import (
	"time"

	"github.com/google/uuid"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
)

// Conversation phases.
const (
	PhaseInitiateConversation = "InitiateConversation"
	PhasePostMessage          = "PostMessage"
	PhaseStartRun             = "StartRun"
	PhasePollRunStatus        = "PollRunStatus"
	PhaseRetrieveResponse     = "RetrieveResponse"
	PhaseRequestNextBatch     = "RequestNextBatch"
	PhaseResendLastResponse   = "ResendLastResponse"
)

// RunContext is the per-invocation view of a run. It is passed by value;
// phases hand back an updated copy instead of mutating shared state.
type RunContext struct {
	RequestID     uuid.UUID
	AssistantName string
	Prompt        string
	Payload       string
	ThreadID      string
	MessageID     string
	RunID         string
	AuthToken     string
	// StartedAt anchors the polling wall-clock budget.
	StartedAt time.Time
}

func NewRunContext(rec *types.ControlRecord, token string, now time.Time) RunContext {
	if rec == nil {
		return RunContext{AuthToken: token, StartedAt: now}
	}
	return RunContext{
		RequestID:     rec.ID,
		AssistantName: rec.WFAssistantName,
		Prompt:        rec.GPTPrompt,
		Payload:       rec.GPTJSON,
		ThreadID:      rec.ThreadID,
		MessageID:     rec.MessageID,
		RunID:         rec.RunID,
		AuthToken:     token,
		StartedAt:     now,
	}
}

// withObject records the id of a provider object onto a copy of rc.
func (rc RunContext) withObject(object, id string) RunContext {
	if id == "" {
		return rc
	}
	switch object {
	case "thread":
		rc.ThreadID = id
	case "thread.message":
		rc.MessageID = id
	case "thread.run":
		rc.RunID = id
	}
	return rc
}
