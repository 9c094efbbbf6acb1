package api

import (
	"net/http"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// EscalationHandler serves the staff side of escalated questions
type EscalationHandler struct {
	helpdesk *service.HelpdeskService
	logger   *logger.Logger
}

// NewEscalationHandler creates a new escalation handler
func NewEscalationHandler(helpdesk *service.HelpdeskService, logger *logger.Logger) *EscalationHandler {
	return &EscalationHandler{helpdesk: helpdesk, logger: logger}
}

// Pending lists pending escalations, oldest first
func (h *EscalationHandler) Pending(c *gin.Context) {
	details, err := h.helpdesk.ListPending(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escalations": details, "count": len(details)})
}

// List lists escalations in the status query parameter, pending by default
func (h *EscalationHandler) List(c *gin.Context) {
	status := models.EscalationStatus(c.DefaultQuery("status", string(models.EscalationPending)))

	details, err := h.helpdesk.ListByStatus(c.Request.Context(), status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escalations": details, "count": len(details), "status": status})
}

// Get returns one escalation with its question
func (h *EscalationHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	detail, err := h.helpdesk.GetEscalation(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Respond answers an escalation
func (h *EscalationHandler) Respond(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.RespondRequest
	if !bindJSON(c, &req) {
		return
	}

	detail, err := h.helpdesk.Respond(c.Request.Context(), who, id, req.Response, req.StaffName)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Close closes an escalation
func (h *EscalationHandler) Close(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	esc, err := h.helpdesk.Close(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, esc)
}
