package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/repository"
	"faqdesk/backend/internal/search"
	"faqdesk/backend/pkg/logger"
	"faqdesk/backend/pkg/observability"
)

const (
	defaultPopularLimit = 10
	mostViewedLimit     = 5
)

// FAQOptions configures a FAQService
type FAQOptions struct {
	Logger  *logger.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// FAQService manages the FAQ table
type FAQService struct {
	store   repository.Store
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewFAQService creates a FAQ service over store
func NewFAQService(store repository.Store, opts FAQOptions) *FAQService {
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FAQService{
		store:   store,
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
}

// Search returns active FAQs matching query, most viewed first.
func (s *FAQService) Search(ctx context.Context, query string) ([]models.FAQ, error) {
	ctx, span := observability.Tracer().Start(ctx, "faq.Search")
	defer span.End()

	faqs, err := search.NewMatcher(s.store.FAQs()).Search(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	s.metrics.Search(ctx, len(faqs) > 0)
	if faqs == nil {
		faqs = []models.FAQ{}
	}
	return faqs, nil
}

// Get returns one FAQ
func (s *FAQService) Get(ctx context.Context, id uint) (*models.FAQ, error) {
	faq, err := s.store.FAQs().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrFAQNotFound
	}
	return faq, err
}

// List returns FAQs newest first
func (s *FAQService) List(ctx context.Context, includeInactive bool) ([]models.FAQ, error) {
	faqs, err := s.store.FAQs().List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	if faqs == nil {
		faqs = []models.FAQ{}
	}
	return faqs, nil
}

// Create adds a FAQ. New FAQs are active unless the request says otherwise.
func (s *FAQService) Create(ctx context.Context, req *models.CreateFAQRequest) (*models.FAQ, error) {
	faq := &models.FAQ{
		Title:    strings.TrimSpace(req.Title),
		Question: strings.TrimSpace(req.Question),
		Answer:   strings.TrimSpace(req.Answer),
		Keywords: strings.TrimSpace(req.Keywords),
		Category: strings.TrimSpace(req.Category),
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := validateFAQ(faq); err != nil {
		return nil, err
	}

	if err := s.store.FAQs().Create(ctx, faq); err != nil {
		return nil, fmt.Errorf("create faq: %w", err)
	}
	s.log.Info("FAQ created", "faq_id", faq.ID, "title", faq.Title)
	return faq, nil
}

// Update changes the fields set in req
func (s *FAQService) Update(ctx context.Context, id uint, req *models.UpdateFAQRequest) (*models.FAQ, error) {
	var updated *models.FAQ
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		faq, err := tx.FAQs().GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFAQNotFound
		}
		if err != nil {
			return fmt.Errorf("load faq: %w", err)
		}

		applyString(&faq.Title, req.Title)
		applyString(&faq.Question, req.Question)
		applyString(&faq.Answer, req.Answer)
		applyString(&faq.Keywords, req.Keywords)
		applyString(&faq.Category, req.Category)
		if req.IsActive != nil {
			faq.IsActive = *req.IsActive
		}
		if err := validateFAQ(faq); err != nil {
			return err
		}

		if err := tx.FAQs().Save(ctx, faq); err != nil {
			return fmt.Errorf("save faq: %w", err)
		}
		updated = faq
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Toggle flips a FAQ between active and inactive
func (s *FAQService) Toggle(ctx context.Context, id uint) (*models.FAQ, error) {
	faq, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	active := !faq.IsActive
	return s.Update(ctx, id, &models.UpdateFAQRequest{IsActive: &active})
}

// Delete removes a FAQ
func (s *FAQService) Delete(ctx context.Context, id uint) error {
	err := s.store.FAQs().Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrFAQNotFound
	}
	if err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	s.log.Info("FAQ deleted", "faq_id", id)
	return nil
}

// Popular returns the most viewed active FAQs
func (s *FAQService) Popular(ctx context.Context, limit int) ([]models.FAQ, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	faqs, err := s.store.FAQs().Popular(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("popular faqs: %w", err)
	}
	if faqs == nil {
		faqs = []models.FAQ{}
	}
	return faqs, nil
}

// Stats summarises the FAQ table
func (s *FAQService) Stats(ctx context.Context) (*models.FAQStats, error) {
	faqs, err := s.store.FAQs().List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}

	stats := &models.FAQStats{TotalFAQs: len(faqs)}
	byCategory := make(map[string]*models.CategoryStats)
	var active []models.FAQ
	for _, faq := range faqs {
		stats.TotalViews += faq.ViewCount
		if !faq.IsActive {
			stats.InactiveFAQs++
			continue
		}
		stats.ActiveFAQs++
		active = append(active, faq)

		category := faq.Category
		if category == "" {
			category = models.UncategorizedLabel
		}
		cs, ok := byCategory[category]
		if !ok {
			cs = &models.CategoryStats{Category: category}
			byCategory[category] = cs
		}
		cs.Count++
		cs.TotalViews += faq.ViewCount
	}

	if stats.ActiveFAQs > 0 {
		activeViews := 0
		for _, faq := range active {
			activeViews += faq.ViewCount
		}
		stats.AvgViewsPerFAQ = float64(activeViews) / float64(stats.ActiveFAQs)
	}

	stats.Categories = make([]models.CategoryStats, 0, len(byCategory))
	for _, cs := range byCategory {
		stats.Categories = append(stats.Categories, *cs)
	}
	sort.Slice(stats.Categories, func(i, j int) bool {
		if stats.Categories[i].Count != stats.Categories[j].Count {
			return stats.Categories[i].Count > stats.Categories[j].Count
		}
		return stats.Categories[i].Category < stats.Categories[j].Category
	})

	search.Rank(active)
	if len(active) > mostViewedLimit {
		active = active[:mostViewedLimit]
	}
	stats.MostViewed = active
	if stats.MostViewed == nil {
		stats.MostViewed = []models.FAQ{}
	}
	return stats, nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func validateFAQ(faq *models.FAQ) error {
	switch {
	case faq.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidFAQ)
	case faq.Question == "":
		return fmt.Errorf("%w: question is required", ErrInvalidFAQ)
	case faq.Answer == "":
		return fmt.Errorf("%w: answer is required", ErrInvalidFAQ)
	case utf8.RuneCountInString(faq.Title) > models.MaxTitleLength:
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidFAQ, models.MaxTitleLength)
	case utf8.RuneCountInString(faq.Question) > models.MaxQuestionLength:
		return fmt.Errorf("%w: question exceeds %d characters", ErrInvalidFAQ, models.MaxQuestionLength)
	case utf8.RuneCountInString(faq.Answer) > models.MaxAnswerLength:
		return fmt.Errorf("%w: answer exceeds %d characters", ErrInvalidFAQ, models.MaxAnswerLength)
	case utf8.RuneCountInString(faq.Category) > models.MaxCategoryLength:
		return fmt.Errorf("%w: category exceeds %d characters", ErrInvalidFAQ, models.MaxCategoryLength)
	}
	return nil
}
