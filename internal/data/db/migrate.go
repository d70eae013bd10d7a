package db

import (
	"fmt"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Assistant control + reference data
		// =========================
		&types.ControlRecord{},
		&types.AssistantConfig{},
		&types.HTTPPhaseMapping{},

		// =========================
		// Activity logs
		// =========================
		&types.RequestLog{},
		&types.PollingLog{},
		&types.StatusLog{},
		&types.ErrorLog{},

		// =========================
		// Narrative projects
		// =========================
		&types.NarrativeProject{},
		&types.PayloadMap{},
	)
}

// EnsureControlIndexes adds Postgres-only indexes the sweeper relies on.
func EnsureControlIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_wf_control_status_updated
		ON wf_assistant_automation_control (status, updated_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_wf_control_status_updated: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_assistant_polling_log_created
		ON assistant_polling_log (created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_assistant_polling_log_created: %w", err)
	}
	return nil
}
