package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/apierr"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/ctxutil"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type CreateRequestInput struct {
	AssistantName      string     `json:"wf_assistant_name"`
	NarrativeProjectID *uuid.UUID `json:"narrative_project_id,omitempty"`
	Prompt             string     `json:"gpt_prompt,omitempty"`
	Payload            string     `json:"gpt_json,omitempty"`
	// Start triggers run-assistant right after the row is written.
	Start bool `json:"start,omitempty"`
}

type RequestService interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (*types.ControlRecord, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*types.ControlRecord, error)
}

type requestService struct {
	log       *logger.Logger
	records   repos.ControlRecordRepo
	registry  *assistant.Registry
	assembler PayloadAssembler
	invoker   StageInvoker
}

func NewRequestService(log *logger.Logger, records repos.ControlRecordRepo, registry *assistant.Registry, assembler PayloadAssembler, invoker StageInvoker) RequestService {
	if invoker == nil {
		invoker = nopInvoker{}
	}
	return &requestService{
		log:       log.With("service", "RequestService"),
		records:   records,
		registry:  registry,
		assembler: assembler,
		invoker:   invoker,
	}
}

func (s *requestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*types.ControlRecord, error) {
	name := strings.TrimSpace(in.AssistantName)
	if name == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_assistant_name", fmt.Errorf("wf_assistant_name is required"))
	}
	if s.registry != nil {
		if _, ok := s.registry.Lookup(name); !ok {
			return nil, apierr.New(http.StatusBadRequest, "unknown_assistant", fmt.Errorf("unknown assistant family %q", name))
		}
	}

	prompt, payload := in.Prompt, in.Payload
	if strings.TrimSpace(prompt) == "" && in.NarrativeProjectID != nil && s.assembler != nil {
		p, js, err := s.assembler.Assemble(ctx, *in.NarrativeProjectID, name)
		if err != nil {
			return nil, err
		}
		prompt, payload = p, js
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_prompt", fmt.Errorf("gpt_prompt is required when no project payload map is available"))
	}

	retry := 0
	rec := &types.ControlRecord{
		Status:             assistant.StatusStarted,
		WFAssistantName:    name,
		NarrativeProjectID: in.NarrativeProjectID,
		GPTPrompt:          prompt,
		GPTJSON:            payload,
		RetryCount:         &retry,
		Version:            1,
	}
	created, err := s.records.Create(dbctx.Context{Ctx: ctx}, []*types.ControlRecord{rec})
	if err != nil {
		s.log.Error("create control record failed", "assistant", name, "error", err)
		return nil, fmt.Errorf("create control record: %w", err)
	}
	if len(created) > 0 && created[0] != nil {
		rec = created[0]
	}
	s.log.Info("control record created", "request_id", rec.ID, "assistant", name)

	if in.Start {
		call := StageCall{
			Stage:     assistant.StageRunAssistant,
			RequestID: rec.ID,
			Version:   rec.Version,
			Token:     ctxutil.AuthToken(ctx),
		}
		if err := s.invoker.Invoke(ctx, call); err != nil {
			s.log.Warn("initial stage invoke failed", "request_id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

func (s *requestService) GetRequest(ctx context.Context, id uuid.UUID) (*types.ControlRecord, error) {
	rec, err := s.records.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apierr.New(http.StatusNotFound, "request_not_found", fmt.Errorf("no control record %s", id))
	}
	return rec, nil
}
