package api

import (
	"net/http"
	"time"

	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/cache"
	"faqdesk/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the staff overview and cache administration
type AdminHandler struct {
	helpdesk   *service.HelpdeskService
	cache      cache.Cache
	staleAfter time.Duration
	logger     *logger.Logger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(helpdesk *service.HelpdeskService, c cache.Cache, staleAfter time.Duration, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{
		helpdesk:   helpdesk,
		cache:      c,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Dashboard returns the helpdesk counters
func (h *AdminHandler) Dashboard(c *gin.Context) {
	d, err := h.helpdesk.Dashboard(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Backlog summarises escalations still waiting for staff
func (h *AdminHandler) Backlog(c *gin.Context) {
	staleAfter := h.staleAfter
	if raw := c.Query("stale_after"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			fail(c, service.ErrInvalidDuration)
			return
		}
		staleAfter = d
	}

	summary, err := h.helpdesk.Backlog(c.Request.Context(), staleAfter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CacheStats reports response cache usage
func (h *AdminHandler) CacheStats(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "stats": h.cache.Stats(c.Request.Context())})
}

// ClearCache drops every cached response
func (h *AdminHandler) ClearCache(c *gin.Context) {
	removed := 0
	if h.cache != nil {
		removed = h.cache.Invalidate(c.Request.Context(), "")
	}
	logger.FromContext(c).Info("Response cache cleared", "keys", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
