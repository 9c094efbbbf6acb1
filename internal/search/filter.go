package search

import (
	"strings"

	"faqdesk/backend/internal/models"
)

// Field is a searchable FAQ column.
type Field string

const (
	FieldTitle    Field = "title"
	FieldQuestion Field = "question"
	FieldAnswer   Field = "answer"
	FieldKeywords Field = "keywords"
	FieldCategory Field = "category"
)

// SearchFields are the columns every term is checked against.
var SearchFields = []Field{FieldTitle, FieldQuestion, FieldAnswer, FieldKeywords, FieldCategory}

// Filter selects FAQs where any term is a substring of any field.
// With ActiveOnly set, inactive FAQs never match.
type Filter struct {
	Terms      []string
	Fields     []Field
	ActiveOnly bool
}

// NewFilter builds the filter for a raw query. A query without usable
// tokens is searched for as a whole.
func NewFilter(query string) Filter {
	return BuildFilter(Tokenize(query), query)
}

// BuildFilter combines tokens into a filter over the searchable fields,
// falling back to raw when tokens is empty.
func BuildFilter(tokens []string, raw string) Filter {
	terms := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	if len(terms) == 0 {
		terms = []string{raw}
	}
	return Filter{
		Terms:      terms,
		Fields:     SearchFields,
		ActiveOnly: true,
	}
}

// Match evaluates the filter against a single FAQ.
func (f Filter) Match(faq *models.FAQ) bool {
	if f.ActiveOnly && !faq.IsActive {
		return false
	}
	for _, term := range f.Terms {
		for _, field := range f.Fields {
			if strings.Contains(FieldValue(faq, field), term) {
				return true
			}
		}
	}
	return false
}

// FieldValue returns the text of field on faq.
func FieldValue(faq *models.FAQ, field Field) string {
	switch field {
	case FieldTitle:
		return faq.Title
	case FieldQuestion:
		return faq.Question
	case FieldAnswer:
		return faq.Answer
	case FieldKeywords:
		return faq.Keywords
	case FieldCategory:
		return faq.Category
	}
	return ""
}
