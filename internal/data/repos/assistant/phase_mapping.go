package assistant

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type PhaseMappingRepo interface {
	Get(dbc dbctx.Context, logicKey string, phase string) (*types.HTTPPhaseMapping, error)
	Upsert(dbc dbctx.Context, m *types.HTTPPhaseMapping) error
}

type phaseMappingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPhaseMappingRepo(db *gorm.DB, baseLog *logger.Logger) PhaseMappingRepo {
	return &phaseMappingRepo{
		db:  db,
		log: baseLog.With("repo", "PhaseMappingRepo"),
	}
}

func (r *phaseMappingRepo) Get(dbc dbctx.Context, logicKey string, phase string) (*types.HTTPPhaseMapping, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if logicKey == "" || phase == "" {
		return nil, nil
	}
	var m types.HTTPPhaseMapping
	if err := transaction.WithContext(dbc.Ctx).
		Where("logic_key = ? AND phase = ?", logicKey, phase).
		Limit(1).
		Find(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	return &m, nil
}

func (r *phaseMappingRepo) Upsert(dbc dbctx.Context, m *types.HTTPPhaseMapping) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if m == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "logic_key"}, {Name: "phase"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"request_key", "method", "url_template", "content_type", "provider",
				"default_model", "default_temperature", "updated_at",
			}),
		}).
		Create(m).Error
}
