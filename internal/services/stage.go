package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/observability"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/apierr"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/ctxutil"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// StageCall is one hop of the pipeline: run Stage against RequestID.
// Version is the record version that produced the hop and makes the hop
// idempotent for routers that dedupe.
type StageCall struct {
	Stage     string
	RequestID uuid.UUID
	Version   int64
	Token     string
}

// StageInvoker hands a stage hop to whatever runs it next (HTTP self-call,
// temporal workflow).
type StageInvoker interface {
	Invoke(ctx context.Context, call StageCall) error
}

type nopInvoker struct{}

func (nopInvoker) Invoke(context.Context, StageCall) error { return nil }

// StageEnvelope is what every stage trigger answers with, halts included.
type StageEnvelope struct {
	Outcome     string `json:"outcome"`
	Message     string `json:"message"`
	Status      string `json:"status"`
	Next        string `json:"next,omitempty"`
	ElapsedTime string `json:"elapsedTime"`
}

type StageService interface {
	RunStage(ctx context.Context, stage string, requestID uuid.UUID) (StageEnvelope, error)
}

type stageService struct {
	log     *logger.Logger
	store   *assistant.Store
	uc      assistant.Usecases
	invoker StageInvoker
	now     func() time.Time
}

func NewStageService(log *logger.Logger, store *assistant.Store, uc assistant.Usecases, invoker StageInvoker) StageService {
	if invoker == nil {
		invoker = nopInvoker{}
	}
	serviceLog := log.With("service", "StageService")
	return &stageService{
		log:     serviceLog,
		store:   store,
		uc:      uc.WithLog(serviceLog),
		invoker: invoker,
		now:     time.Now,
	}
}

func (s *stageService) RunStage(ctx context.Context, stage string, requestID uuid.UUID) (StageEnvelope, error) {
	start := s.now()
	if !assistant.IsStage(stage) {
		return StageEnvelope{}, apierr.New(http.StatusBadRequest, "unknown_stage", fmt.Errorf("unknown stage %q", stage))
	}
	if requestID == uuid.Nil {
		return StageEnvelope{}, apierr.New(http.StatusBadRequest, "missing_request_id", fmt.Errorf("request_id is required"))
	}

	ctx, span := otel.Tracer("spinalith/stage").Start(ctx, "stage."+stage)
	defer span.End()
	span.SetAttributes(
		attribute.String("stage", stage),
		attribute.String("request_id", requestID.String()),
	)

	rec, err := s.store.Load(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return StageEnvelope{}, fmt.Errorf("load control record: %w", err)
	}
	if rec == nil {
		return StageEnvelope{}, apierr.New(http.StatusNotFound, "request_not_found", fmt.Errorf("no control record %s", requestID))
	}

	token := ctxutil.AuthToken(ctx)
	out, runErr := s.uc.Run(ctx, stage, assistant.StageInput{Record: rec, AuthToken: token})
	elapsed := s.now().Sub(start)
	observability.Current().ObserveStage(stage, out.Outcome, elapsed)
	span.SetAttributes(attribute.String("outcome", out.Outcome), attribute.String("status", out.Status))

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "stage failed")
		s.log.Error("stage failed", "stage", stage, "request_id", requestID, "status", rec.Status, "error", runErr)
		if errors.Is(runErr, assistant.ErrUnknownAssistantFamily) {
			return StageEnvelope{}, apierr.New(http.StatusInternalServerError, "merge_failed", runErr)
		}
		return StageEnvelope{}, apierr.New(http.StatusInternalServerError, "stage_failed", runErr)
	}

	if out.Next != "" {
		call := StageCall{Stage: out.Next, RequestID: rec.ID, Version: rec.Version, Token: token}
		if err := s.invoker.Invoke(ctx, call); err != nil {
			// The row already sits in a recoverable status; the sweeper retries the hop.
			s.log.Warn("next stage invoke failed", "stage", stage, "next", out.Next, "request_id", rec.ID, "error", err)
		}
	}

	s.log.Info("stage finished",
		"stage", stage,
		"request_id", rec.ID,
		"outcome", out.Outcome,
		"status", out.Status,
		"next", out.Next,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return StageEnvelope{
		Outcome:     out.Outcome,
		Message:     out.Message,
		Status:      out.Status,
		Next:        out.Next,
		ElapsedTime: formatElapsed(elapsed),
	}, nil
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
