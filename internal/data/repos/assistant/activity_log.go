package assistant

import (
	"gorm.io/gorm"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type ActivityLogRepo interface {
	CreateRequestLog(dbc dbctx.Context, row *types.RequestLog) error
	CreatePollingLog(dbc dbctx.Context, row *types.PollingLog) error
	CreateStatusLog(dbc dbctx.Context, row *types.StatusLog) error
	CreateErrorLog(dbc dbctx.Context, row *types.ErrorLog) error
}

type activityLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityLogRepo(db *gorm.DB, baseLog *logger.Logger) ActivityLogRepo {
	return &activityLogRepo{
		db:  db,
		log: baseLog.With("repo", "ActivityLogRepo"),
	}
}

func (r *activityLogRepo) create(dbc dbctx.Context, row any) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *activityLogRepo) CreateRequestLog(dbc dbctx.Context, row *types.RequestLog) error {
	if row == nil {
		return nil
	}
	return r.create(dbc, row)
}

func (r *activityLogRepo) CreatePollingLog(dbc dbctx.Context, row *types.PollingLog) error {
	if row == nil {
		return nil
	}
	return r.create(dbc, row)
}

func (r *activityLogRepo) CreateStatusLog(dbc dbctx.Context, row *types.StatusLog) error {
	if row == nil {
		return nil
	}
	return r.create(dbc, row)
}

func (r *activityLogRepo) CreateErrorLog(dbc dbctx.Context, row *types.ErrorLog) error {
	if row == nil {
		return nil
	}
	return r.create(dbc, row)
}
