package models

import (
	"time"
)

// Column limits applied on create and import.
const (
	MaxTitleLength    = 200
	MaxQuestionLength = 1000
	MaxAnswerLength   = 2000
	MaxCategoryLength = 100
)

// UncategorizedLabel is reported for FAQs with an empty category.
const UncategorizedLabel = "未分類"

// FAQ is a curated question/answer entry matched against user questions
type FAQ struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Keywords  string    `gorm:"type:text" json:"keywords"`
	Category  string    `gorm:"size:100;index" json:"category"`
	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	ViewCount int       `gorm:"not null" json:"view_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateFAQRequest is the request structure for creating a FAQ
type CreateFAQRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	Question string `json:"question" binding:"required,max=1000"`
	Answer   string `json:"answer" binding:"required,max=2000"`
	Keywords string `json:"keywords"`
	Category string `json:"category" binding:"max=100"`
	IsActive *bool  `json:"is_active"`
}

// UpdateFAQRequest carries the fields to change; nil fields are left untouched.
type UpdateFAQRequest struct {
	Title    *string `json:"title" binding:"omitempty,max=200"`
	Question *string `json:"question" binding:"omitempty,max=1000"`
	Answer   *string `json:"answer" binding:"omitempty,max=2000"`
	Keywords *string `json:"keywords"`
	Category *string `json:"category" binding:"omitempty,max=100"`
	IsActive *bool   `json:"is_active"`
}

// SearchRequest is the body of a FAQ search
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
}

// CategoryStats aggregates FAQs sharing a category.
type CategoryStats struct {
	Category   string `json:"category"`
	Count      int    `json:"count"`
	TotalViews int    `json:"total_views"`
}

// FAQStats summarises the FAQ table.
type FAQStats struct {
	TotalFAQs      int             `json:"total_faqs"`
	ActiveFAQs     int             `json:"active_faqs"`
	InactiveFAQs   int             `json:"inactive_faqs"`
	TotalViews     int             `json:"total_views"`
	AvgViewsPerFAQ float64         `json:"avg_views_per_faq"`
	Categories     []CategoryStats `json:"categories"`
	MostViewed     []FAQ           `json:"most_viewed"`
}
