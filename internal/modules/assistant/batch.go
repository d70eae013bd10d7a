package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// MaxRetries bounds malformed-JSON resends per run.
const MaxRetries = 3

type BatchResult struct {
	Status   string
	Continue bool
	Final    string
}

type BatchEngine struct {
	log      *logger.Logger
	store    *Store
	configs  repos.AssistantConfigRepo
	registry *Registry
	recorder ActivityRecorder
}

func NewBatchEngine(log *logger.Logger, store *Store, configs repos.AssistantConfigRepo, registry *Registry, recorder ActivityRecorder) *BatchEngine {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &BatchEngine{
		log:      log.With("component", "BatchEngine"),
		store:    store,
		configs:  configs,
		registry: registry,
		recorder: recorder,
	}
}

// ValidateChunk extracts, sanitizes and parses one raw response chunk.
func ValidateChunk(raw string, fam Family, known bool) (map[string]json.RawMessage, bool) {
	block, ok := ExtractJSONBlock(raw)
	if !ok {
		return nil, false
	}
	if known {
		block = SanitizeFields(block, fam.SanitizeFields)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// NeedsContinuation is true only when a batch style is configured and the
// chunk explicitly says it is not the last one.
func NeedsContinuation(batchStyle string, chunk map[string]json.RawMessage) bool {
	if strings.TrimSpace(batchStyle) == "" {
		return false
	}
	raw, ok := chunk["isFinalChunk"]
	if !ok {
		return false
	}
	var final bool
	if err := json.Unmarshal(raw, &final); err != nil {
		return false
	}
	return !final
}

// ProcessBatch handles the chunk in rec.IterationJSON and writes the resulting status.
func (e *BatchEngine) ProcessBatch(ctx context.Context, rec *types.ControlRecord) (BatchResult, error) {
	fam, known := e.registry.Lookup(rec.WFAssistantName)

	chunk, ok := ValidateChunk(rec.IterationJSON, fam, known)
	if !ok {
		return e.handleMalformed(ctx, rec)
	}

	batchStyle, err := e.batchStyle(ctx, rec.WFAssistantName, fam)
	if err != nil {
		return BatchResult{}, err
	}

	concatenated := AppendChunk(rec.ConcatenatedJSON, rec.IterationJSON)
	if NeedsContinuation(batchStyle, chunk) {
		err := e.store.Update(ctx, rec, map[string]any{
			ColConcatenatedJSON: concatenated,
			ColRetryCount:       0,
			ColStatus:           StatusAwaitingNextBatch,
		})
		if err != nil {
			return BatchResult{}, err
		}
		return BatchResult{Status: StatusAwaitingNextBatch, Continue: true}, nil
	}

	merged, err := e.registry.Merge(rec.WFAssistantName, SplitChunks(concatenated), func(i int, err error) {
		e.log.Warn("skipping unparsable segment", "request_id", rec.ID, "segment", i, "error", err)
		e.recorder.RecordError(ctx, ErrorEvent{
			RequestID: rec.ID,
			Stage:     StageProcessBatch,
			Code:      "segment_parse",
			Message:   err.Error(),
			Context:   map[string]any{"segment": i},
		})
	})
	if err != nil {
		if errors.Is(err, ErrUnknownAssistantFamily) {
			e.recorder.RecordError(ctx, ErrorEvent{
				RequestID: rec.ID,
				Stage:     StageProcessBatch,
				Code:      "unknown_assistant_family",
				Message:   err.Error(),
			})
			if uerr := e.store.SetStatus(ctx, rec, HaltUnknownFamily); uerr != nil {
				e.log.Warn("halt status write failed", "request_id", rec.ID, "error", uerr)
			}
		}
		return BatchResult{}, err
	}

	err = e.store.Update(ctx, rec, map[string]any{
		ColConcatenatedJSON: concatenated,
		ColFinalJSON:        merged,
		ColRetryCount:       0,
		ColStatus:           StatusParseResponse,
	})
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Status: StatusParseResponse, Final: merged}, nil
}

func (e *BatchEngine) handleMalformed(ctx context.Context, rec *types.ControlRecord) (BatchResult, error) {
	e.recorder.RecordError(ctx, ErrorEvent{
		RequestID: rec.ID,
		Stage:     StageProcessBatch,
		Code:      "malformed_json",
		Message:   "assistant response is not valid JSON",
		Context:   map[string]any{"retry_count": rec.RetryCount},
	})
	// A missing counter is treated as exhausted.
	if rec.RetryCount == nil || *rec.RetryCount >= MaxRetries {
		if err := e.store.SetStatus(ctx, rec, StatusMaxRetryAttemptsReached); err != nil {
			return BatchResult{}, err
		}
		return BatchResult{Status: StatusMaxRetryAttemptsReached}, nil
	}
	err := e.store.Update(ctx, rec, map[string]any{
		ColRetryCount: *rec.RetryCount + 1,
		ColStatus:     StatusResendLastResponse,
	})
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Status: StatusResendLastResponse}, nil
}

// batchStyle prefers the stored assistant configuration over the registry default.
func (e *BatchEngine) batchStyle(ctx context.Context, name string, fam Family) (string, error) {
	if e.configs != nil {
		cfg, err := e.configs.GetByName(dbctx.Context{Ctx: ctx}, name)
		if err != nil {
			return "", fmt.Errorf("load assistant config %s: %w", name, err)
		}
		if cfg != nil && strings.TrimSpace(cfg.BatchStyle) != "" {
			return cfg.BatchStyle, nil
		}
	}
	return fam.BatchStyle, nil
}
