package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos"
	"github.com/dagra27407/spinalith-site-sub000/internal/data/repos/narrative"
	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/apierr"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/ctxutil"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/dbctx"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

type CreateProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Genre       string `json:"genre,omitempty"`
}

type ProjectService interface {
	CreateProject(ctx context.Context, in CreateProjectInput) (*types.NarrativeProject, error)
	GetProject(ctx context.Context, id uuid.UUID) (*types.NarrativeProject, error)
	ListProjects(ctx context.Context) ([]*types.NarrativeProject, error)
	SavePayloadMap(ctx context.Context, projectID uuid.UUID, assistantName string, doc json.RawMessage) (*types.PayloadMap, error)
	GetPayloadMap(ctx context.Context, projectID uuid.UUID, assistantName string) (*types.PayloadMap, error)
}

type projectService struct {
	log      *logger.Logger
	projects repos.NarrativeProjectRepo
	maps     repos.PayloadMapRepo
}

func NewProjectService(log *logger.Logger, projects repos.NarrativeProjectRepo, maps repos.PayloadMapRepo) ProjectService {
	return &projectService{
		log:      log.With("service", "ProjectService"),
		projects: projects,
		maps:     maps,
	}
}

func ownerFrom(ctx context.Context) (string, error) {
	ad := ctxutil.GetAuthData(ctx)
	if ad == nil || strings.TrimSpace(ad.Subject) == "" {
		return "", apierr.New(http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated subject"))
	}
	return ad.Subject, nil
}

func (s *projectService) CreateProject(ctx context.Context, in CreateProjectInput) (*types.NarrativeProject, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_title", fmt.Errorf("title is required"))
	}
	p := &types.NarrativeProject{
		OwnerSubject: owner,
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Genre:        strings.TrimSpace(in.Genre),
		Status:       "draft",
	}
	created, err := s.projects.Create(dbctx.Context{Ctx: ctx}, p)
	if err != nil {
		if narrative.IsUniqueViolation(err) {
			return nil, apierr.New(http.StatusConflict, "duplicate_project", fmt.Errorf("a project titled %q already exists", title))
		}
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.log.Info("narrative project created", "project_id", created.ID, "owner", owner)
	return created, nil
}

// GetProject only returns projects owned by the caller.
func (s *projectService) GetProject(ctx context.Context, id uuid.UUID) (*types.NarrativeProject, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.OwnerSubject != owner {
		return nil, apierr.New(http.StatusNotFound, "project_not_found", fmt.Errorf("no narrative project %s", id))
	}
	return p, nil
}

func (s *projectService) ListProjects(ctx context.Context) ([]*types.NarrativeProject, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.projects.ListByOwner(dbctx.Context{Ctx: ctx}, owner)
}

func (s *projectService) SavePayloadMap(ctx context.Context, projectID uuid.UUID, assistantName string, doc json.RawMessage) (*types.PayloadMap, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	assistantName = strings.TrimSpace(assistantName)
	if assistantName == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_assistant_name", fmt.Errorf("assistant name is required"))
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(doc, &probe); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_payload_map", fmt.Errorf("payload map must be a JSON object: %w", err))
	}
	pm, err := s.maps.Save(dbctx.Context{Ctx: ctx}, projectID, assistantName, datatypes.JSON(doc))
	if err != nil {
		return nil, fmt.Errorf("save payload map: %w", err)
	}
	s.log.Info("payload map saved", "project_id", projectID, "assistant", assistantName, "revision", pm.Revision)
	return pm, nil
}

func (s *projectService) GetPayloadMap(ctx context.Context, projectID uuid.UUID, assistantName string) (*types.PayloadMap, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	pm, err := s.maps.Get(dbctx.Context{Ctx: ctx}, projectID, strings.TrimSpace(assistantName))
	if err != nil {
		return nil, err
	}
	if pm == nil {
		return nil, apierr.New(http.StatusNotFound, "payload_map_not_found", fmt.Errorf("no payload map for %q", assistantName))
	}
	return pm, nil
}
