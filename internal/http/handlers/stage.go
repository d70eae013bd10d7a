package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dagra27407/spinalith-site-sub000/internal/http/response"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

type StageHandler struct {
	stages services.StageService
}

func NewStageHandler(stages services.StageService) *StageHandler {
	return &StageHandler{stages: stages}
}

type stageRequest struct {
	RequestID string `json:"request_id"`
}

// POST /api/assistant/stages/:stage
func (h *StageHandler) RunStage(c *gin.Context) {
	var body stageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(body.RequestID))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_id", errInvalidID("request_id"))
		return
	}
	env, err := h.stages.RunStage(c.Request.Context(), c.Param("stage"), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, env)
}
