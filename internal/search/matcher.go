package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"faqdesk/backend/internal/models"
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("search query is empty")

// Corpus is the FAQ source a Matcher reads from.
type Corpus interface {
	FindFAQs(ctx context.Context, filter Filter) ([]models.FAQ, error)
}

// Matcher answers free-text questions from a corpus of FAQs
type Matcher struct {
	corpus Corpus
}

// NewMatcher creates a matcher over corpus
func NewMatcher(corpus Corpus) *Matcher {
	return &Matcher{corpus: corpus}
}

// Search returns the active FAQs matching query, most viewed first.
func (m *Matcher) Search(ctx context.Context, query string) ([]models.FAQ, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	faqs, err := m.corpus.FindFAQs(ctx, NewFilter(query))
	if err != nil {
		return nil, fmt.Errorf("find faqs: %w", err)
	}

	return Rank(dedupe(faqs)), nil
}

// Rank orders faqs by view count descending, ties broken by ascending id.
func Rank(faqs []models.FAQ) []models.FAQ {
	sort.SliceStable(faqs, func(i, j int) bool {
		if faqs[i].ViewCount != faqs[j].ViewCount {
			return faqs[i].ViewCount > faqs[j].ViewCount
		}
		return faqs[i].ID < faqs[j].ID
	})
	return faqs
}

func dedupe(faqs []models.FAQ) []models.FAQ {
	seen := make(map[uint]struct{}, len(faqs))
	out := faqs[:0]
	for _, f := range faqs {
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		out = append(out, f)
	}
	return out
}
