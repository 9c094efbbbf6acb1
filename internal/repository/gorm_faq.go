package repository

import (
	"context"
	"fmt"
	"strings"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/search"

	"gorm.io/gorm"
)

var fieldColumns = map[search.Field]string{
	search.FieldTitle:    "title",
	search.FieldQuestion: "question",
	search.FieldAnswer:   "answer",
	search.FieldKeywords: "keywords",
	search.FieldCategory: "category",
}

type gormFAQRepository struct {
	db *gorm.DB
}

// FilterSQL renders the term part of a filter as a case-sensitive
// containment predicate, one placeholder per term and field.
func FilterSQL(filter search.Filter) (string, []interface{}) {
	var (
		terms []string
		args  []interface{}
	)
	for _, term := range filter.Terms {
		var fields []string
		for _, field := range filter.Fields {
			column, ok := fieldColumns[field]
			if !ok {
				continue
			}
			fields = append(fields, fmt.Sprintf("strpos(COALESCE(%s, ''), ?) > 0", column))
			args = append(args, term)
		}
		if len(fields) > 0 {
			terms = append(terms, strings.Join(fields, " OR "))
		}
	}
	if len(terms) == 0 {
		return "", nil
	}
	return "(" + strings.Join(terms, " OR ") + ")", args
}

func (r *gormFAQRepository) FindFAQs(ctx context.Context, filter search.Filter) ([]models.FAQ, error) {
	where, args := FilterSQL(filter)
	if where == "" {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Where(where, args...)
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var faqs []models.FAQ
	err := query.Order("view_count DESC").Order("id ASC").Find(&faqs).Error
	return faqs, err
}

func (r *gormFAQRepository) Create(ctx context.Context, faq *models.FAQ) error {
	return translate(r.db.WithContext(ctx).Create(faq).Error)
}

func (r *gormFAQRepository) Save(ctx context.Context, faq *models.FAQ) error {
	return translate(r.db.WithContext(ctx).Save(faq).Error)
}

func (r *gormFAQRepository) GetByID(ctx context.Context, id uint) (*models.FAQ, error) {
	var faq models.FAQ
	if err := r.db.WithContext(ctx).First(&faq, id).Error; err != nil {
		return nil, translate(err)
	}
	return &faq, nil
}

func (r *gormFAQRepository) List(ctx context.Context, includeInactive bool) ([]models.FAQ, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var faqs []models.FAQ
	err := query.Find(&faqs).Error
	return faqs, err
}

func (r *gormFAQRepository) Delete(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&models.FAQ{}, id))
}

func (r *gormFAQRepository) IncrementViewCount(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.FAQ{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	return affected(res)
}

func (r *gormFAQRepository) Popular(ctx context.Context, limit int) ([]models.FAQ, error) {
	var faqs []models.FAQ
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("view_count DESC").Order("id ASC").
		Limit(limit).
		Find(&faqs).Error
	return faqs, err
}

func (r *gormFAQRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	var n int64
	query := r.db.WithContext(ctx).Model(&models.FAQ{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Count(&n).Error
	return n, err
}
