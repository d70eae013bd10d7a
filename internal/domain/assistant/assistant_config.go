package assistant

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssistantConfig is read-only reference data authored out of band.
type AssistantConfig struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AssistantName  string    `gorm:"column:assistant_name;not null;uniqueIndex" json:"assistant_name"`
	AssistantID    string    `gorm:"column:assistant_id" json:"assistant_id"`
	Provider       string    `gorm:"column:provider" json:"provider"`
	Model          string    `gorm:"column:model" json:"model"`
	Temperature    *float64  `gorm:"column:temperature" json:"temperature,omitempty"`
	BatchStyle     string    `gorm:"column:batch_style" json:"batch_style,omitempty"`
	PromptTemplate string    `gorm:"column:prompt_template;type:text" json:"prompt_template"`
	ContinuePrompt string    `gorm:"column:continue_prompt;type:text" json:"continue_prompt"`
	ResendPrompt   string    `gorm:"column:resend_prompt;type:text" json:"resend_prompt"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (AssistantConfig) TableName() string { return "wf_assistant_config" }

func (c *AssistantConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
