package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dagra27407/spinalith-site-sub000/internal/http/response"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

// Payload map documents are authored by the builder UI and can be large.
const maxPayloadMapBytes = 4 << 20

type ProjectHandler struct {
	projects services.ProjectService
}

func NewProjectHandler(projects services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// POST /api/narrative-projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var in services.CreateProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	p, err := h.projects.CreateProject(c.Request.Context(), in)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"project": p})
}

// GET /api/narrative-projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	list, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"projects": list})
}

// GET /api/narrative-projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", errInvalidID("id"))
		return
	}
	p, err := h.projects.GetProject(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"project": p})
}

// PUT /api/narrative-projects/:id/payload-maps/:assistant
func (h *ProjectHandler) SavePayloadMap(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", errInvalidID("id"))
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadMapBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if len(raw) > maxPayloadMapBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_map_too_large", fmt.Errorf("payload map exceeds %d bytes", maxPayloadMapBytes))
		return
	}
	pm, err := h.projects.SavePayloadMap(c.Request.Context(), id, c.Param("assistant"), json.RawMessage(raw))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"payload_map": pm})
}

// GET /api/narrative-projects/:id/payload-maps/:assistant
func (h *ProjectHandler) GetPayloadMap(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_project_id", errInvalidID("id"))
		return
	}
	pm, err := h.projects.GetPayloadMap(c.Request.Context(), id, c.Param("assistant"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"payload_map": pm})
}
