package assistant

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ControlRecord is the durable row for one assistant run. All workflow state
// lives here; nothing is kept in memory between stage invocations.
type ControlRecord struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Status             string     `gorm:"column:status;index" json:"status"`
	WFAssistantName    string     `gorm:"column:wf_assistant_name;not null;index" json:"wf_assistant_name"`
	NarrativeProjectID *uuid.UUID `gorm:"type:uuid;column:narrative_project_id;index" json:"narrative_project_id,omitempty"`
	GPTPrompt          string     `gorm:"column:gpt_prompt;type:text" json:"gpt_prompt"`
	GPTJSON            string     `gorm:"column:gpt_json;type:text" json:"gpt_json"`
	IterationJSON      string     `gorm:"column:iteration_json;type:text" json:"iteration_json"`
	ConcatenatedJSON   string     `gorm:"column:concatenated_json;type:text" json:"concatenated_json"`
	FinalJSON          string     `gorm:"column:final_json;type:text" json:"final_json"`
	// RetryCount is nullable on purpose: a missing value reads as exhausted.
	RetryCount *int   `gorm:"column:retry_count" json:"retry_count"`
	ThreadID   string `gorm:"column:thread_id" json:"thread_id,omitempty"`
	RunID      string `gorm:"column:run_id" json:"run_id,omitempty"`
	MessageID  string `gorm:"column:message_id" json:"message_id,omitempty"`
	// Version is bumped on every runtime write and guards compare-and-swap updates.
	Version   int64     `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

func (ControlRecord) TableName() string { return "wf_assistant_automation_control" }

func (r *ControlRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Version <= 0 {
		r.Version = 1
	}
	return nil
}
