package stagerun

import "strconv"

const (
	WorkflowName = "AssistantStageWorkflow"
	ActivityRun  = "AssistantStageActivity"
)

type Input struct {
	Stage     string `json:"stage"`
	RequestID string `json:"request_id"`
	Token     string `json:"token,omitempty"`
}

type Result struct {
	Outcome     string `json:"outcome"`
	Message     string `json:"message"`
	Status      string `json:"status"`
	Next        string `json:"next,omitempty"`
	ElapsedTime string `json:"elapsedTime"`
}

// WorkflowID dedupes hops: one workflow per (request, stage, record version).
func WorkflowID(requestID, stage string, version int64) string {
	return requestID + ":" + stage + ":" + strconv.FormatInt(version, 10)
}
