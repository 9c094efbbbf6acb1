package api

import (
	"net/http"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatHandler serves the question pipeline and conversation history
type ChatHandler struct {
	helpdesk *service.HelpdeskService
	logger   *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(helpdesk *service.HelpdeskService, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{helpdesk: helpdesk, logger: logger}
}

// Send submits a question and returns the FAQ answer or the escalation
// acknowledgement.
func (h *ChatHandler) Send(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.helpdesk.Submit(c.Request.Context(), who, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Messages returns the conversation history of the caller, or of the user
// named by the user_id query parameter.
func (h *ChatHandler) Messages(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	userID, ok := queryUint(c, "user_id")
	if !ok {
		return
	}

	history, err := h.helpdesk.GetMessages(c.Request.Context(), who, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Feedback rates a bot or staff message
func (h *ChatHandler) Feedback(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.FeedbackRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.helpdesk.Feedback(c.Request.Context(), who, id, req.Rating, req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// AdminSend posts a staff message into a user's conversation
func (h *ChatHandler) AdminSend(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.AdminMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.helpdesk.AdminSend(c.Request.Context(), who, userID, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
