// internal/server/handlers.go
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"calendar-assistant/internal/assistant/orchestrator"
	stderrors "calendar-assistant/internal/common/errors"
	"calendar-assistant/internal/common/logger"
	"calendar-assistant/internal/common/observability"
)

type Handler struct {
	Dispatcher Assistant
	Obs        *observability.Observability
	Logger     logger.Logger
}

type messageRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversationId"`
	Model          string `json:"model"`
}

// Message handles one request/response utterance.
func (h *Handler) Message(c *gin.Context) {
	req, ok := h.decode(c)
	if !ok {
		return
	}

	start := time.Now()
	resp, err := h.Dispatcher.Handle(c.Request.Context(), req)
	if err != nil {
		h.Logger.Warn("utterance rejected", map[string]interface{}{
			"error": err.Error(),
			"user":  req.UserID,
		})
		h.Obs.RecordRequest(c.Request.Context(), "unknown", "error")
		c.JSON(stderrors.HTTPStatus(err), gin.H{"error": stderrors.UserMessage(err)})
		return
	}

	h.Obs.RecordRequest(c.Request.Context(), string(resp.Intent), "success")
	h.Obs.RecordRequestDuration(c.Request.Context(), time.Since(start), string(resp.Intent))
	c.JSON(http.StatusOK, resp)
}

// Stream handles one utterance as a server-sent event stream: zero or more
// delta events, then one final (or error) event.
func (h *Handler) Stream(c *gin.Context) {
	req, ok := h.decode(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	h.Dispatcher.HandleStream(c.Request.Context(), req, func(ev orchestrator.StreamEvent) error {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
		switch {
		case ev.Error != "":
			c.SSEvent("error", gin.H{"error": ev.Error})
		case ev.Final != nil:
			c.SSEvent("final", ev.Final)
		default:
			c.SSEvent("delta", gin.H{"delta": ev.Delta})
		}
		c.Writer.Flush()
		return nil
	})
}

// decode validates the body and pulls the caller identity from headers.
// Authentication itself is fronted by the gateway; the transport trusts the
// forwarded identity headers.
func (h *Handler) decode(c *gin.Context) (orchestrator.Request, bool) {
	var body messageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return orchestrator.Request{}, false
	}

	userID := c.GetHeader("X-User-Id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return orchestrator.Request{}, false
	}

	var roles []string
	if raw := c.GetHeader("X-User-Roles"); raw != "" {
		for _, role := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(role); trimmed != "" {
				roles = append(roles, trimmed)
			}
		}
	}

	return orchestrator.Request{
		UserID:         userID,
		Utterance:      body.Message,
		ConversationID: body.ConversationID,
		Model:          body.Model,
		Roles:          roles,
	}, true
}
