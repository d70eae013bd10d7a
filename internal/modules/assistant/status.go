package assistant

import "strings"

const (
	StatusStarted                 = "Started"
	StatusThreadCreated           = "ThreadCreated"
	StatusMessagePosted           = "MessagePosted"
	StatusRunStarted              = "RunStarted"
	StatusNextBatchRequested      = "NextBatchRequested"
	StatusResendRequested         = "ResendRequested"
	StatusCheckLoopBatch          = "CheckLoopBatch"
	StatusAwaitingNextBatch       = "AwaitingNextBatch"
	StatusResendLastResponse      = "Re-SendLastResponse"
	StatusMaxRetryAttemptsReached = "MaxRetryAttemptsReached"
	StatusParseResponse           = "ParseResponse"
	StatusComplete                = "Complete"
	StatusPotentialRestart        = "PotentialRestart"
	StatusPollingNeeded           = "PollingNeeded"
	StatusRetrieveNeeded          = "RetrieveNeeded"

	RunStatusPrefix = "RunStatus:"
	HaltPrefix      = "Halt:"
)

// Halt reasons.
const (
	HaltMissingConfiguration = HaltPrefix + "MissingConfiguration"
	HaltRequiresAction       = HaltPrefix + "RequiresAction"
	HaltProviderError        = HaltPrefix + "ProviderError"
	HaltUnknownFamily        = HaltPrefix + "UnknownAssistantFamily"
	HaltMissingThread        = HaltPrefix + "MissingThread"
)

// Stage names, as accepted by the trigger endpoint and the router.
const (
	StageRunAssistant       = "run-assistant"
	StageProcessBatch       = "process-batch"
	StageRequestNextBatch   = "request-next-batch"
	StageResendLastResponse = "resend-last-response"
	StageParseResponse      = "parse-response"
)

// Provider run statuses.
const (
	RunQueued         = "queued"
	RunInProgress     = "in_progress"
	RunCancelling     = "cancelling"
	RunCompleted      = "completed"
	RunFailed         = "failed"
	RunCancelled      = "cancelled"
	RunExpired        = "expired"
	RunRequiresAction = "requires_action"
)

func RunStatus(s string) string { return RunStatusPrefix + s }

func IsTerminalRunStatus(s string) bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired, RunRequiresAction:
		return true
	}
	return false
}

// HaltForRun maps a terminal, non-successful run status to its halt state.
func HaltForRun(runStatus string) string {
	switch runStatus {
	case RunRequiresAction:
		return HaltRequiresAction
	case RunFailed:
		return HaltPrefix + "RunFailed"
	case RunCancelled:
		return HaltPrefix + "RunCancelled"
	case RunExpired:
		return HaltPrefix + "RunExpired"
	}
	return HaltProviderError
}

func IsHalted(s string) bool { return strings.HasPrefix(s, HaltPrefix) }

// IsTerminal reports whether no further automatic stage runs from s.
// ParseResponse is terminal for this pipeline; the downstream stage owns it.
func IsTerminal(s string) bool {
	switch s {
	case StatusComplete, StatusMaxRetryAttemptsReached, StatusParseResponse:
		return true
	}
	return IsHalted(s)
}

// RecoverableStatuses are picked up again by a later invocation.
func RecoverableStatuses() []string {
	return []string{
		StatusPollingNeeded,
		StatusRetrieveNeeded,
		StatusResendLastResponse,
		StatusPotentialRestart,
		StatusAwaitingNextBatch,
		StatusCheckLoopBatch,
	}
}

// StageFor names the stage that resumes a row sitting in status s.
func StageFor(s string) (string, bool) {
	switch s {
	case StatusPollingNeeded, StatusRetrieveNeeded, StatusPotentialRestart:
		return StageRunAssistant, true
	case StatusResendLastResponse:
		return StageResendLastResponse, true
	case StatusAwaitingNextBatch:
		return StageRequestNextBatch, true
	case StatusCheckLoopBatch:
		return StageProcessBatch, true
	case StatusParseResponse:
		return StageParseResponse, true
	}
	return "", false
}

// CanEnter guards against duplicate triggers: each stage only runs from the
// statuses that hand off to it.
func CanEnter(stage, status string) bool {
	switch stage {
	case StageProcessBatch:
		return status == StatusCheckLoopBatch
	case StageRequestNextBatch:
		return status == StatusAwaitingNextBatch
	case StageResendLastResponse:
		return status == StatusResendLastResponse
	case StageRunAssistant:
		if IsTerminal(status) {
			return false
		}
		switch status {
		case StatusCheckLoopBatch, StatusAwaitingNextBatch, StatusResendLastResponse:
			return false
		}
		return true
	}
	return false
}

func IsStage(stage string) bool {
	switch stage {
	case StageRunAssistant, StageProcessBatch, StageRequestNextBatch, StageResendLastResponse:
		return true
	}
	return false
}
