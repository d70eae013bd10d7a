package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/dagra27407/spinalith-site-sub000/internal/domain"
	"github.com/dagra27407/spinalith-site-sub000/internal/http/response"
	"github.com/dagra27407/spinalith-site-sub000/internal/modules/assistant"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
	"github.com/dagra27407/spinalith-site-sub000/internal/services"
)

const keepAliveInterval = 20 * time.Second

// StatusSubscriber is satisfied by the redis status bus.
type StatusSubscriber interface {
	StartForwarder(ctx context.Context, onEvent func(ev assistant.StatusEvent)) error
}

type EventsHandler struct {
	log      *logger.Logger
	requests services.RequestService
	bus      StatusSubscriber
}

func NewEventsHandler(log *logger.Logger, requests services.RequestService, bus StatusSubscriber) *EventsHandler {
	return &EventsHandler{
		log:      log.With("handler", "EventsHandler"),
		requests: requests,
		bus:      bus,
	}
}

// GET /api/assistant/requests/:id/events
//
// Streams status transitions for one request as server-sent events. The
// current status is sent first; the stream ends once the request reaches a
// terminal or halted status.
func (h *EventsHandler) StreamStatus(c *gin.Context) {
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

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if assistant.IsTerminal(rec.Status) || h.bus == nil {
		c.SSEvent("status", eventFor(rec))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events := make(chan assistant.StatusEvent, 16)
	err = h.bus.StartForwarder(ctx, func(ev assistant.StatusEvent) {
		if ev.RequestID != id {
			return
		}
		select {
		case events <- ev:
		default:
			h.log.Warn("status event dropped for slow client", "request_id", id, "status", ev.Status)
		}
	})
	if err != nil {
		h.log.Warn("status subscribe failed", "request_id", id, "error", err)
		c.SSEvent("status", eventFor(rec))
		return
	}

	// Transitions published before the subscription was live are only visible
	// in the row, so read it again now that nothing more can be missed.
	if fresh, err := h.requests.GetRequest(ctx, id); err == nil && fresh != nil {
		rec = fresh
	} else if err != nil {
		h.log.Warn("status re-read failed", "request_id", id, "error", err)
	}
	c.SSEvent("status", eventFor(rec))
	if assistant.IsTerminal(rec.Status) {
		return
	}
	c.Writer.Flush()
	seen := rec.Version

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case ev := <-events:
			if ev.Version != 0 && ev.Version <= seen {
				return true
			}
			c.SSEvent("status", ev)
			return !assistant.IsTerminal(ev.Status)
		}
	})
}

func eventFor(rec *types.ControlRecord) assistant.StatusEvent {
	return assistant.StatusEvent{RequestID: rec.ID, Status: rec.Status, Version: rec.Version, At: rec.UpdatedAt}
}
