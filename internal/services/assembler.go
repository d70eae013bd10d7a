package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/apierr"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// PayloadAssembler turns a project's stored mapping document into the
// prompt and JSON payload an assistant run starts from.
type PayloadAssembler interface {
	Assemble(ctx context.Context, projectID uuid.UUID, assistantName string) (prompt string, payloadJSON string, err error)
}

// staticAssembler reads the assistant's prompt template and the mapping
// document's staticPayload section. Table loading and the filter DSL live
// with the builder UI, not here.
type staticAssembler struct {
	log      *logger.Logger
	projects repos.NarrativeProjectRepo
	maps     repos.PayloadMapRepo
	configs  repos.AssistantConfigRepo
}

func NewPayloadAssembler(log *logger.Logger, projects repos.NarrativeProjectRepo, maps repos.PayloadMapRepo, configs repos.AssistantConfigRepo) PayloadAssembler {
	return &staticAssembler{
		log:      log.With("service", "PayloadAssembler"),
		projects: projects,
		maps:     maps,
		configs:  configs,
	}
}

func (a *staticAssembler) Assemble(ctx context.Context, projectID uuid.UUID, assistantName string) (string, string, error) {
	dbc := dbctx.Context{Ctx: ctx}
	project, err := a.projects.GetByID(dbc, projectID)
	if err != nil {
		return "", "", err
	}
	if project == nil {
		return "", "", apierr.New(http.StatusNotFound, "project_not_found", fmt.Errorf("no narrative project %s", projectID))
	}
	cfg, err := a.configs.GetByName(dbc, assistantName)
	if err != nil {
		return "", "", err
	}
	if cfg == nil || strings.TrimSpace(cfg.PromptTemplate) == "" {
		return "", "", apierr.New(http.StatusUnprocessableEntity, "missing_prompt_template", fmt.Errorf("assistant %q has no prompt template", assistantName))
	}
	pm, err := a.maps.Get(dbc, projectID, assistantName)
	if err != nil {
		return "", "", err
	}
	if pm == nil {
		return "", "", apierr.New(http.StatusUnprocessableEntity, "missing_payload_map", fmt.Errorf("project %s has no payload map for %q", projectID, assistantName))
	}
	payload, err := staticPayload(pm.Document)
	if err != nil {
		return "", "", apierr.New(http.StatusUnprocessableEntity, "invalid_payload_map", err)
	}

	prompt := strings.NewReplacer(
		"{{project_title}}", project.Title,
		"{{project_genre}}", project.Genre,
	).Replace(cfg.PromptTemplate)

	a.log.Debug("payload assembled", "project_id", projectID, "assistant", assistantName, "revision", pm.Revision, "payload_bytes", len(payload))
	return prompt, payload, nil
}

func staticPayload(doc []byte) (string, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(doc, &sections); err != nil {
		return "", fmt.Errorf("payload map is not a JSON object: %w", err)
	}
	raw, ok := sections["staticPayload"]
	if !ok || len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return "", fmt.Errorf("payload map has no staticPayload section")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}
