package assistant

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HTTPPhaseMapping describes how one conversation phase is called.
// URLTemplate may carry {{thread_id}} and {{run_id}} placeholders.
type HTTPPhaseMapping struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestKey         string    `gorm:"column:request_key;not null;index" json:"request_key"`
	LogicKey           string    `gorm:"column:logic_key;not null;uniqueIndex:idx_phase_mapping_logic_phase" json:"logic_key"`
	Phase              string    `gorm:"column:phase;not null;uniqueIndex:idx_phase_mapping_logic_phase" json:"phase"`
	Method             string    `gorm:"column:method;not null" json:"method"`
	URLTemplate        string    `gorm:"column:url_template;not null" json:"url_template"`
	ContentType        string    `gorm:"column:content_type" json:"content_type"`
	Provider           string    `gorm:"column:provider" json:"provider"`
	DefaultModel       string    `gorm:"column:default_model" json:"default_model"`
	DefaultTemperature *float64  `gorm:"column:default_temperature" json:"default_temperature,omitempty"`
	CreatedAt          time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (HTTPPhaseMapping) TableName() string { return "wf_http_phase_mapping" }

func (m *HTTPPhaseMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
