package assistant

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type ControlRecordRepo interface {
	Create(dbc dbctx.Context, recs []*types.ControlRecord) ([]*types.ControlRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ControlRecord, error)
	// UpdateFieldsCAS applies updates only when the row is still at expectedVersion,
	// bumping version by one. It reports whether the row was updated.
	UpdateFieldsCAS(dbc dbctx.Context, id uuid.UUID, expectedVersion int64, updates map[string]interface{}) (bool, error)
	ListStale(dbc dbctx.Context, statuses []string, updatedBefore time.Time, limit int) ([]*types.ControlRecord, error)
}

type controlRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewControlRecordRepo(db *gorm.DB, baseLog *logger.Logger) ControlRecordRepo {
	return &controlRecordRepo{
		db:  db,
		log: baseLog.With("repo", "ControlRecordRepo"),
	}
}

func (r *controlRecordRepo) Create(dbc dbctx.Context, recs []*types.ControlRecord) ([]*types.ControlRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(recs) == 0 {
		return []*types.ControlRecord{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *controlRecordRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ControlRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rec types.ControlRecord
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *controlRecordRepo) UpdateFieldsCAS(dbc dbctx.Context, id uuid.UUID, expectedVersion int64, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["version"] = gorm.Expr("version + 1")
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.ControlRecord{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *controlRecordRepo) ListStale(dbc dbctx.Context, statuses []string, updatedBefore time.Time, limit int) ([]*types.ControlRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ControlRecord
	if len(statuses) == 0 {
		return out, nil
	}
	if limit <= 0 {
		limit = 50
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("status IN ? AND updated_at < ?", statuses, updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
