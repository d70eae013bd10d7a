package assistant

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type AssistantConfigRepo interface {
	GetByName(dbc dbctx.Context, name string) (*types.AssistantConfig, error)
	Upsert(dbc dbctx.Context, cfg *types.AssistantConfig) error
}

type assistantConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssistantConfigRepo(db *gorm.DB, baseLog *logger.Logger) AssistantConfigRepo {
	return &assistantConfigRepo{
		db:  db,
		log: baseLog.With("repo", "AssistantConfigRepo"),
	}
}

func (r *assistantConfigRepo) GetByName(dbc dbctx.Context, name string) (*types.AssistantConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var cfg types.AssistantConfig
	if err := transaction.WithContext(dbc.Ctx).
		Where("assistant_name = ?", name).
		Limit(1).
		Find(&cfg).Error; err != nil {
		return nil, err
	}
	if cfg.ID == uuid.Nil {
		return nil, nil
	}
	return &cfg, nil
}

func (r *assistantConfigRepo) Upsert(dbc dbctx.Context, cfg *types.AssistantConfig) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if cfg == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assistant_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"assistant_id", "provider", "model", "temperature", "batch_style",
				"prompt_template", "continue_prompt", "resend_prompt", "updated_at",
			}),
		}).
		Create(cfg).Error
}
