package assistant

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestLog records one outbound provider call.
type RequestLog struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID      *uuid.UUID     `gorm:"type:uuid;column:request_id;index" json:"request_id,omitempty"`
	Phase          string         `gorm:"column:phase;index" json:"phase"`
	Provider       string         `gorm:"column:provider" json:"provider"`
	Method         string         `gorm:"column:method" json:"method"`
	URL            string         `gorm:"column:url" json:"url"`
	RequestHeaders datatypes.JSON `gorm:"column:request_headers;type:jsonb" json:"request_headers"`
	RequestBody    datatypes.JSON `gorm:"column:request_body;type:jsonb" json:"request_body"`
	ResponseBody   string         `gorm:"column:response_body;type:text" json:"response_body"`
	StatusCode     int            `gorm:"column:status_code" json:"status_code"`
	DurationMS     int64          `gorm:"column:duration_ms" json:"duration_ms"`
	SoftError      bool           `gorm:"column:soft_error" json:"soft_error"`
	ErrorMessage   string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (RequestLog) TableName() string { return "assistant_request_log" }

func (l *RequestLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// PollingLog has the request log's shape but holds the high-volume
// "still running" poll responses.
type PollingLog RequestLog

func (PollingLog) TableName() string { return "assistant_polling_log" }

func (l *PollingLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type StatusLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID  uuid.UUID `gorm:"type:uuid;column:request_id;not null;index" json:"request_id"`
	FromStatus string    `gorm:"column:from_status" json:"from_status"`
	ToStatus   string    `gorm:"column:to_status;not null" json:"to_status"`
	Version    int64     `gorm:"column:version" json:"version"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (StatusLog) TableName() string { return "assistant_status_log" }

func (l *StatusLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type ErrorLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID *uuid.UUID     `gorm:"type:uuid;column:request_id;index" json:"request_id,omitempty"`
	Stage     string         `gorm:"column:stage" json:"stage"`
	Phase     string         `gorm:"column:phase" json:"phase"`
	Code      string         `gorm:"column:code;index" json:"code"`
	Message   string         `gorm:"column:message;type:text" json:"message"`
	Context   datatypes.JSON `gorm:"column:context;type:jsonb" json:"context"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (ErrorLog) TableName() string { return "assistant_error_log" }

func (l *ErrorLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
