package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dagra27407/spinalith-site-sub000/internal/http/response"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

type RequestHandler struct {
	requests services.RequestService
}

func NewRequestHandler(requests services.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// POST /api/assistant/requests
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var in services.CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rec, err := h.requests.CreateRequest(c.Request.Context(), in)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"request": rec})
}

// GET /api/assistant/requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_id", errInvalidID("id"))
		return
	}
	rec, err := h.requests.GetRequest(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"request": rec})
}
