package narrative

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type PayloadMapRepo interface {
	Get(dbc dbctx.Context, projectID uuid.UUID, assistantName string) (*types.PayloadMap, error)
	// Save creates the map or replaces its document, bumping revision.
	Save(dbc dbctx.Context, projectID uuid.UUID, assistantName string, doc datatypes.JSON) (*types.PayloadMap, error)
}

type payloadMapRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPayloadMapRepo(db *gorm.DB, baseLog *logger.Logger) PayloadMapRepo {
	return &payloadMapRepo{
		db:  db,
		log: baseLog.With("repo", "PayloadMapRepo"),
	}
}

func (r *payloadMapRepo) Get(dbc dbctx.Context, projectID uuid.UUID, assistantName string) (*types.PayloadMap, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if projectID == uuid.Nil || assistantName == "" {
		return nil, nil
	}
	var m types.PayloadMap
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ? AND assistant_name = ?", projectID, assistantName).
		Limit(1).
		Find(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	return &m, nil
}

func (r *payloadMapRepo) Save(dbc dbctx.Context, projectID uuid.UUID, assistantName string, doc datatypes.JSON) (*types.PayloadMap, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if projectID == uuid.Nil || assistantName == "" {
		return nil, errors.New("project id and assistant name required")
	}
	var saved *types.PayloadMap
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var existing types.PayloadMap
		if err := txx.Where("project_id = ? AND assistant_name = ?", projectID, assistantName).
			Limit(1).
			Find(&existing).Error; err != nil {
			return err
		}
		if existing.ID == uuid.Nil {
			row := &types.PayloadMap{
				ProjectID:     projectID,
				AssistantName: assistantName,
				Document:      doc,
				Revision:      1,
			}
			if err := txx.Create(row).Error; err != nil {
				return err
			}
			saved = row
			return nil
		}
		now := time.Now()
		if err := txx.Model(&types.PayloadMap{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"document":   doc,
				"revision":   gorm.Expr("revision + 1"),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		existing.Document = doc
		existing.Revision++
		existing.UpdatedAt = now
		saved = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
