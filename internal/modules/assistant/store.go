package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// Control record columns written at runtime.
const (
	ColStatus           = "status"
	ColThreadID         = "thread_id"
	ColMessageID        = "message_id"
	ColRunID            = "run_id"
	ColIterationJSON    = "iteration_json"
	ColConcatenatedJSON = "concatenated_json"
	ColFinalJSON        = "final_json"
	ColRetryCount       = "retry_count"
)

// StatusEvent is published on every persisted status change.
type StatusEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	At        time.Time `json:"at"`
}

type StatusPublisher interface {
	PublishStatus(ctx context.Context, ev StatusEvent) error
}

type NopPublisher struct{}

func (NopPublisher) PublishStatus(context.Context, StatusEvent) error { return nil }

// Store owns every runtime write to a control record. Writes are
// compare-and-swap on the record's version; a lost race surfaces as
// ErrConcurrentUpdate and the caller must stop.
type Store struct {
	log      *logger.Logger
	repo     repos.ControlRecordRepo
	recorder ActivityRecorder
	bus      StatusPublisher
	now      func() time.Time
}

func NewStore(log *logger.Logger, repo repos.ControlRecordRepo, recorder ActivityRecorder, bus StatusPublisher) *Store {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if bus == nil {
		bus = NopPublisher{}
	}
	return &Store{
		log:      log.With("component", "ControlStore"),
		repo:     repo,
		recorder: recorder,
		bus:      bus,
		now:      time.Now,
	}
}

func (s *Store) Load(ctx context.Context, id uuid.UUID) (*types.ControlRecord, error) {
	return s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
}

// Update writes updates to rec and, on success, applies them to rec in place.
func (s *Store) Update(ctx context.Context, rec *types.ControlRecord, updates map[string]any) error {
	if rec == nil {
		return fmt.Errorf("nil control record")
	}
	fields := make(map[string]interface{}, len(updates)+2)
	for k, v := range updates {
		fields[k] = v
	}
	ok, err := s.repo.UpdateFieldsCAS(dbctx.Context{Ctx: ctx}, rec.ID, rec.Version, fields)
	if err != nil {
		return fmt.Errorf("update control record %s: %w", rec.ID, err)
	}
	if !ok {
		s.log.Warn("control record version conflict", "request_id", rec.ID, "expected_version", rec.Version)
		return ErrConcurrentUpdate
	}
	prev := rec.Status
	applyUpdates(rec, updates)
	rec.Version++
	rec.UpdatedAt = s.now()

	if next, ok := updates[ColStatus].(string); ok && next != prev {
		s.recorder.RecordStatus(ctx, rec.ID, prev, next, rec.Version)
		ev := StatusEvent{RequestID: rec.ID, Status: next, Version: rec.Version, At: rec.UpdatedAt}
		if err := s.bus.PublishStatus(ctx, ev); err != nil {
			s.log.Warn("status publish failed", "request_id", rec.ID, "status", next, "error", err)
		}
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, rec *types.ControlRecord, status string) error {
	return s.Update(ctx, rec, map[string]any{ColStatus: status})
}

func applyUpdates(rec *types.ControlRecord, updates map[string]any) {
	for k, v := range updates {
		switch k {
		case ColStatus:
			rec.Status, _ = v.(string)
		case ColThreadID:
			rec.ThreadID, _ = v.(string)
		case ColMessageID:
			rec.MessageID, _ = v.(string)
		case ColRunID:
			rec.RunID, _ = v.(string)
		case ColIterationJSON:
			rec.IterationJSON, _ = v.(string)
		case ColConcatenatedJSON:
			rec.ConcatenatedJSON, _ = v.(string)
		case ColFinalJSON:
			rec.FinalJSON, _ = v.(string)
		case ColRetryCount:
			if n, ok := v.(int); ok {
				rec.RetryCount = &n
			}
		}
	}
}
