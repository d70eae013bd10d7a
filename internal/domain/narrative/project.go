package narrative

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Project struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerSubject string         `gorm:"column:owner_subject;not null;uniqueIndex:idx_narrative_project_owner_title,priority:1" json:"owner_subject"`
	Title        string         `gorm:"column:title;not null;uniqueIndex:idx_narrative_project_owner_title,priority:2" json:"title"`
	Description  string         `gorm:"column:description;type:text" json:"description"`
	Genre        string         `gorm:"column:genre" json:"genre,omitempty"`
	Status       string         `gorm:"column:status;not null;default:draft" json:"status"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "narrative_project" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PayloadMap is the declarative mapping document the builder UI produces for one
// (project, assistant) pair. Only the payload assembler reads its contents.
type PayloadMap struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID      `gorm:"type:uuid;column:project_id;not null;uniqueIndex:idx_payload_map_project_assistant" json:"project_id"`
	AssistantName string         `gorm:"column:assistant_name;not null;uniqueIndex:idx_payload_map_project_assistant" json:"assistant_name"`
	Document      datatypes.JSON `gorm:"column:document;type:jsonb" json:"document"`
	Revision      int            `gorm:"column:revision;not null;default:1" json:"revision"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (PayloadMap) TableName() string { return "narrative_payload_map" }

func (m *PayloadMap) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
