package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dagra27407/spinalith-site-sub000/internal/clients/llm"
	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// DefaultLogicKey selects the threads-style phase mappings.
const DefaultLogicKey = "assistant_threads"

// PhaseResult is what a phase reports. Data is the provider's parsed body.
type PhaseResult struct {
	Success    bool
	Data       map[string]any
	StatusCode int
	SoftError  bool
	Err        error
}

// PhaseExecutor runs one conversation phase and returns the context with any
// newly learned ids.
type PhaseExecutor interface {
	ExecutePhase(ctx context.Context, phase string, rc RunContext) (PhaseResult, RunContext)
}

type DispatcherDeps struct {
	Log      *logger.Logger
	Mappings repos.PhaseMappingRepo
	Configs  repos.AssistantConfigRepo
	LLM      llm.Client
	Creds    llm.Credentials
	Registry *Registry
	Recorder ActivityRecorder
	LogicKey string
}

type Dispatcher struct {
	log      *logger.Logger
	mappings repos.PhaseMappingRepo
	configs  repos.AssistantConfigRepo
	llm      llm.Client
	creds    llm.Credentials
	registry *Registry
	recorder ActivityRecorder
	logicKey string
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.Recorder == nil {
		deps.Recorder = NopRecorder{}
	}
	if deps.LogicKey == "" {
		deps.LogicKey = DefaultLogicKey
	}
	return &Dispatcher{
		log:      deps.Log.With("component", "PhaseDispatcher"),
		mappings: deps.Mappings,
		configs:  deps.Configs,
		llm:      deps.LLM,
		creds:    deps.Creds,
		registry: deps.Registry,
		recorder: deps.Recorder,
		logicKey: deps.LogicKey,
	}
}

func (d *Dispatcher) ExecutePhase(ctx context.Context, phase string, rc RunContext) (PhaseResult, RunContext) {
	ctx, span := otel.Tracer("assistant").Start(ctx, "assistant.phase")
	defer span.End()
	span.SetAttributes(
		attribute.String("assistant.phase", phase),
		attribute.String("assistant.name", rc.AssistantName),
		attribute.String("assistant.request_id", rc.RequestID.String()),
	)

	req, err := d.buildRequest(ctx, phase, rc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.log.Error("phase setup failed",
			"phase", phase,
			"request_id", rc.RequestID,
			"assistant", rc.AssistantName,
			"thread_id", rc.ThreadID,
			"run_id", rc.RunID,
			"error", err,
		)
		d.recorder.RecordError(ctx, ErrorEvent{
			RequestID: rc.RequestID,
			Phase:     phase,
			Code:      "phase_setup",
			Message:   err.Error(),
			Context: map[string]any{
				"assistant": rc.AssistantName,
				"logic_key": d.logicKey,
				"thread_id": rc.ThreadID,
				"run_id":    rc.RunID,
			},
		})
		return PhaseResult{Err: err}, rc
	}

	res := d.llm.Send(ctx, req)
	out := PhaseResult{
		Success:    res.Success,
		Data:       res.Data,
		StatusCode: res.StatusCode,
		SoftError:  res.SoftError,
		Err:        res.Err,
	}
	if !res.Success {
		span.SetStatus(codes.Error, "provider call failed")
		return out, rc
	}
	object, _ := res.Data["object"].(string)
	id, _ := res.Data["id"].(string)
	return out, rc.withObject(object, id)
}

func (d *Dispatcher) buildRequest(ctx context.Context, phase string, rc RunContext) (llm.Request, error) {
	dbc := dbctx.Context{Ctx: ctx}
	mapping, err := d.mappings.Get(dbc, d.logicKey, phase)
	if err != nil {
		return llm.Request{}, fmt.Errorf("load phase mapping %s/%s: %w", d.logicKey, phase, err)
	}
	if mapping == nil {
		return llm.Request{}, fmt.Errorf("%w: %s/%s", ErrPhaseMappingNotFound, d.logicKey, phase)
	}

	var cfg *types.AssistantConfig
	if needsAssistantConfig(phase) {
		cfg, err = d.configs.GetByName(dbc, rc.AssistantName)
		if err != nil {
			return llm.Request{}, fmt.Errorf("load assistant config %s: %w", rc.AssistantName, err)
		}
		if cfg == nil {
			return llm.Request{}, fmt.Errorf("%w: %s", ErrAssistantConfigNotFound, rc.AssistantName)
		}
	}

	url, err := substituteIDs(mapping.URLTemplate, rc)
	if err != nil {
		return llm.Request{}, fmt.Errorf("phase %s: %w", phase, err)
	}
	body, err := d.buildBody(phase, rc, mapping, cfg)
	if err != nil {
		return llm.Request{}, err
	}

	provider := mapping.Provider
	if cfg != nil && strings.TrimSpace(cfg.Provider) != "" {
		provider = cfg.Provider
	}
	method := strings.ToUpper(strings.TrimSpace(mapping.Method))
	if method == "" {
		method = http.MethodPost
	}
	if body == nil && method != http.MethodGet {
		body = map[string]any{}
	}
	return llm.Request{
		RequestID: rc.RequestID,
		Phase:     phase,
		Provider:  provider,
		Method:    method,
		URL:       url,
		Headers:   llm.Headers(provider, d.creds, mapping.ContentType),
		Body:      body,
	}, nil
}

func needsAssistantConfig(phase string) bool {
	switch phase {
	case PhaseStartRun, PhaseRequestNextBatch, PhaseResendLastResponse:
		return true
	}
	return false
}

func (d *Dispatcher) buildBody(phase string, rc RunContext, mapping *types.HTTPPhaseMapping, cfg *types.AssistantConfig) (map[string]any, error) {
	switch phase {
	case PhaseInitiateConversation, PhasePollRunStatus, PhaseRetrieveResponse:
		return nil, nil
	case PhasePostMessage:
		return userMessage(joinPrompt(rc.Prompt, rc.Payload)), nil
	case PhaseStartRun:
		if strings.TrimSpace(cfg.AssistantID) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAssistantID, rc.AssistantName)
		}
		body := map[string]any{"assistant_id": cfg.AssistantID}
		model := cfg.Model
		if model == "" {
			model = mapping.DefaultModel
		}
		if model != "" {
			body["model"] = model
		}
		temp := cfg.Temperature
		if temp == nil {
			temp = mapping.DefaultTemperature
		}
		if temp != nil {
			body["temperature"] = *temp
		}
		return body, nil
	case PhaseRequestNextBatch:
		prompt := cfg.ContinuePrompt
		if prompt == "" {
			if fam, ok := d.registry.Lookup(rc.AssistantName); ok {
				prompt = fam.ContinuePrompt
			}
		}
		if strings.TrimSpace(prompt) == "" {
			return nil, fmt.Errorf("%w: continue prompt for %s", ErrMissingPrompt, rc.AssistantName)
		}
		return userMessage(prompt), nil
	case PhaseResendLastResponse:
		prompt := cfg.ResendPrompt
		if prompt == "" {
			if fam, ok := d.registry.Lookup(rc.AssistantName); ok {
				prompt = fam.ResendPrompt
			}
		}
		if strings.TrimSpace(prompt) == "" {
			return nil, fmt.Errorf("%w: resend prompt for %s", ErrMissingPrompt, rc.AssistantName)
		}
		return userMessage(prompt), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
}

func userMessage(content string) map[string]any {
	return map[string]any{"role": "user", "content": content}
}

func joinPrompt(prompt, payload string) string {
	prompt = strings.TrimSpace(prompt)
	payload = strings.TrimSpace(payload)
	switch {
	case prompt == "":
		return payload
	case payload == "":
		return prompt
	}
	return prompt + "\n\n" + payload
}

// substituteIDs fills {{thread_id}} and {{run_id}}; a placeholder with no
// value in rc is an ordering bug and fails the phase.
func substituteIDs(tmpl string, rc RunContext) (string, error) {
	out := tmpl
	for _, p := range []struct{ key, val string }{
		{"{{thread_id}}", rc.ThreadID},
		{"{{run_id}}", rc.RunID},
		{"{{message_id}}", rc.MessageID},
	} {
		if !strings.Contains(out, p.key) {
			continue
		}
		if p.val == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingPrerequisiteID, strings.Trim(p.key, "{}"))
		}
		out = strings.ReplaceAll(out, p.key, p.val)
	}
	return out, nil
}
