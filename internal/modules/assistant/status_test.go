package assistant

import "testing"

func TestCanEnter(t *testing.T) {
	cases := []struct {
		stage, status string
		want          bool
	}{
		{StageRunAssistant, "", true},
		{StageRunAssistant, StatusStarted, true},
		{StageRunAssistant, StatusPollingNeeded, true},
		{StageRunAssistant, RunStatus(RunInProgress), true},
		{StageRunAssistant, StatusCheckLoopBatch, false},
		{StageRunAssistant, StatusParseResponse, false},
		{StageRunAssistant, HaltMissingConfiguration, false},
		{StageProcessBatch, StatusCheckLoopBatch, true},
		{StageProcessBatch, StatusAwaitingNextBatch, false},
		{StageRequestNextBatch, StatusAwaitingNextBatch, true},
		{StageResendLastResponse, StatusResendLastResponse, true},
		{StageResendLastResponse, StatusMaxRetryAttemptsReached, false},
		{"bogus", StatusStarted, false},
	}
	for _, tc := range cases {
		if got := CanEnter(tc.stage, tc.status); got != tc.want {
			t.Fatalf("CanEnter(%s, %q) = %v want %v", tc.stage, tc.status, got, tc.want)
		}
	}
}

func TestStageForRecoverableStatuses(t *testing.T) {
	for _, s := range RecoverableStatuses() {
		if _, ok := StageFor(s); !ok {
			t.Fatalf("recoverable status %s has no stage", s)
		}
		if IsTerminal(s) {
			t.Fatalf("recoverable status %s reported terminal", s)
		}
	}
}

func TestHaltForRun(t *testing.T) {
	cases := map[string]string{
		RunFailed:         "Halt:RunFailed",
		RunCancelled:      "Halt:RunCancelled",
		RunExpired:        "Halt:RunExpired",
		RunRequiresAction: HaltRequiresAction,
	}
	for in, want := range cases {
		if got := HaltForRun(in); got != want {
			t.Fatalf("HaltForRun(%s) = %s want %s", in, got, want)
		}
	}
}
