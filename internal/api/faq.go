package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/cache"
	"faqdesk/backend/pkg/errors"
	"faqdesk/backend/pkg/logger"
	"faqdesk/backend/pkg/observability"

	"github.com/gin-gonic/gin"
)

// Cache namespaces. Every FAQ mutation drops everything under faqCachePrefix.
const (
	faqCachePrefix    = "faq:"
	searchCacheSpace  = "faq:search"
	popularCacheSpace = "faq:popular"
)

const maxImportSize = 10 << 20

// FAQHandler serves FAQ search and administration
type FAQHandler struct {
	faqs    *service.FAQService
	cache   cache.Cache
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *logger.Logger
}

// NewFAQHandler creates a FAQ handler. A nil cache disables response caching.
func NewFAQHandler(faqs *service.FAQService, c cache.Cache, ttl time.Duration, metrics *observability.Metrics, logger *logger.Logger) *FAQHandler {
	return &FAQHandler{
		faqs:    faqs,
		cache:   c,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

type searchResponse struct {
	Query string       `json:"query"`
	Count int          `json:"count"`
	FAQs  []models.FAQ `json:"faqs"`
}

// Search returns active FAQs matching the query, most viewed first
func (h *FAQHandler) Search(c *gin.Context) {
	var req models.SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	key := cache.Key(searchCacheSpace, req.Query)
	var resp searchResponse
	if h.cache != nil {
		hit := cache.GetJSON(ctx, h.cache, key, &resp)
		h.metrics.CacheLookup(ctx, hit)
		if hit {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	faqs, err := h.faqs.Search(ctx, req.Query)
	if err != nil {
		fail(c, err)
		return
	}
	resp = searchResponse{Query: req.Query, Count: len(faqs), FAQs: faqs}
	cache.SetJSON(ctx, h.cache, key, resp, h.ttl)
	c.JSON(http.StatusOK, resp)
}

// Popular returns the most viewed active FAQs
func (h *FAQHandler) Popular(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		fail(c, errors.NewBadRequestError(errors.CodeValidation, "limit must be between 1 and 100"))
		return
	}
	ctx := c.Request.Context()

	key := cache.Key(popularCacheSpace, strconv.Itoa(limit))
	var faqs []models.FAQ
	if h.cache != nil {
		hit := cache.GetJSON(ctx, h.cache, key, &faqs)
		h.metrics.CacheLookup(ctx, hit)
		if hit {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, gin.H{"faqs": faqs, "count": len(faqs)})
			return
		}
	}

	faqs, err = h.faqs.Popular(ctx, limit)
	if err != nil {
		fail(c, err)
		return
	}
	cache.SetJSON(ctx, h.cache, key, faqs, h.ttl)
	c.JSON(http.StatusOK, gin.H{"faqs": faqs, "count": len(faqs)})
}

// List returns FAQs newest first. include_inactive is honoured for staff only.
func (h *FAQHandler) List(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	includeInactive := who.IsStaff() && c.Query("include_inactive") == "true"

	faqs, err := h.faqs.List(c.Request.Context(), includeInactive)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"faqs": faqs, "count": len(faqs)})
}

// Get returns one FAQ. Inactive FAQs are visible to staff only.
func (h *FAQHandler) Get(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	faq, err := h.faqs.Get(c.Request.Context(), id)
	if err == nil && !faq.IsActive && !who.IsStaff() {
		err = service.ErrFAQNotFound
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, faq)
}

// Create adds a FAQ
func (h *FAQHandler) Create(c *gin.Context) {
	var req models.CreateFAQRequest
	if !bindJSON(c, &req) {
		return
	}

	faq, err := h.faqs.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.invalidate(c)
	c.JSON(http.StatusCreated, faq)
}

// Update changes a FAQ
func (h *FAQHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateFAQRequest
	if !bindJSON(c, &req) {
		return
	}

	faq, err := h.faqs.Update(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, err)
		return
	}
	h.invalidate(c)
	c.JSON(http.StatusOK, faq)
}

// Toggle flips the active flag of a FAQ
func (h *FAQHandler) Toggle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	faq, err := h.faqs.Toggle(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	h.invalidate(c)
	c.JSON(http.StatusOK, faq)
}

// Delete removes a FAQ
func (h *FAQHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.faqs.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.invalidate(c)
	c.Status(http.StatusNoContent)
}

// Stats summarises the FAQ table
func (h *FAQHandler) Stats(c *gin.Context) {
	stats, err := h.faqs.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Import creates FAQs from an uploaded file. The format comes from the
// format form field or else the file extension.
func (h *FAQHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	header, err := c.FormFile("file")
	if err != nil {
		fail(c, errors.NewBadRequestError(errors.CodeValidation, "a file field is required"))
		return
	}

	var format service.Format
	if name := c.PostForm("format"); name != "" {
		format, err = service.ParseFormat(name)
	} else {
		format, err = service.FormatFromFilename(header.Filename)
	}
	if err != nil {
		fail(c, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		fail(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	result, err := h.faqs.Import(c.Request.Context(), format, file)
	if err != nil {
		appErr := toAppError(err)
		if result != nil {
			appErr = appErr.WithDetails(result)
		}
		fail(c, appErr)
		return
	}
	h.invalidate(c)

	logger.FromContext(c).Info("FAQs imported", "file", header.Filename, "imported", result.Imported, "skipped", result.Skipped)
	c.JSON(http.StatusOK, result)
}

// Export downloads FAQs in the format query parameter, csv by default
func (h *FAQHandler) Export(c *gin.Context) {
	format, err := service.ParseFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	if err != nil {
		fail(c, err)
		return
	}
	includeInactive := c.Query("include_inactive") == "true"

	var buf bytes.Buffer
	if _, err := h.faqs.Export(c.Request.Context(), format, includeInactive, &buf); err != nil {
		fail(c, err)
		return
	}

	filename := fmt.Sprintf("faqs_%s.%s", time.Now().Format("20060102_150405"), format.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *FAQHandler) invalidate(c *gin.Context) {
	if h.cache == nil {
		return
	}
	n := h.cache.Invalidate(c.Request.Context(), faqCachePrefix)
	logger.FromContext(c).Debug("FAQ cache invalidated", "keys", n)
}
