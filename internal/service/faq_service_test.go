package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/repository"
	"faqdesk/backend/internal/search"
	"faqdesk/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newFAQService(store repository.Store) *FAQService {
	return NewFAQService(store, FAQOptions{Logger: logger.Discard()})
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestFAQSearch(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	parking := parkingFAQ(t, store)
	createFAQ(t, store, models.FAQ{Title: "食堂", Question: "q", Answer: "a", Keywords: "駐車場の隣", IsActive: true, ViewCount: 1})
	svc := newFAQService(store)

	faqs, err := svc.Search(ctx, "駐車場はどこですか")
	require.NoError(t, err)
	require.Len(t, faqs, 2)
	assert.Equal(t, parking.ID, faqs[0].ID)

	faqs, err = svc.Search(ctx, "no such thing")
	require.NoError(t, err)
	assert.NotNil(t, faqs)
	assert.Empty(t, faqs)

	_, err = svc.Search(ctx, "  ")
	assert.ErrorIs(t, err, search.ErrEmptyQuery)

	stored, err := store.FAQs().GetByID(ctx, parking.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.ViewCount)
}

func TestFAQCreateDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	svc := newFAQService(repository.NewMemoryStore())

	faq, err := svc.Create(ctx, &models.CreateFAQRequest{Title: " 休暇 ", Question: "休暇の申請方法", Answer: "ポータルから申請します"})
	require.NoError(t, err)
	assert.True(t, faq.IsActive)
	assert.Equal(t, "休暇", faq.Title)
	assert.NotZero(t, faq.ID)

	inactive, err := svc.Create(ctx, &models.CreateFAQRequest{Title: "t", Question: "q", Answer: "a", IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)

	_, err = svc.Create(ctx, &models.CreateFAQRequest{Title: "t", Question: " ", Answer: "a"})
	assert.ErrorIs(t, err, ErrInvalidFAQ)

	_, err = svc.Create(ctx, &models.CreateFAQRequest{Title: strings.Repeat("長", models.MaxTitleLength+1), Question: "q", Answer: "a"})
	assert.ErrorIs(t, err, ErrInvalidFAQ)
}

func TestFAQUpdateToggleDelete(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	faq := parkingFAQ(t, store)
	svc := newFAQService(store)

	updated, err := svc.Update(ctx, faq.ID, &models.UpdateFAQRequest{Answer: strPtr("地下にあります。"), Category: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "地下にあります。", updated.Answer)
	assert.Equal(t, faq.Title, updated.Title)
	assert.Empty(t, updated.Category)

	_, err = svc.Update(ctx, faq.ID, &models.UpdateFAQRequest{Title: strPtr("")})
	assert.ErrorIs(t, err, ErrInvalidFAQ)

	toggled, err := svc.Toggle(ctx, faq.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	found, err := svc.Search(ctx, "駐車場")
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, svc.Delete(ctx, faq.ID))
	assert.ErrorIs(t, svc.Delete(ctx, faq.ID), ErrFAQNotFound)
	_, err = svc.Get(ctx, faq.ID)
	assert.ErrorIs(t, err, ErrFAQNotFound)
	_, err = svc.Update(ctx, faq.ID, &models.UpdateFAQRequest{})
	assert.ErrorIs(t, err, ErrFAQNotFound)
}

func TestFAQPopularAndStats(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	createFAQ(t, store, models.FAQ{Title: "a", Question: "q", Answer: "a", Category: "施設", IsActive: true, ViewCount: 3})
	createFAQ(t, store, models.FAQ{Title: "b", Question: "q", Answer: "a", Category: "施設", IsActive: true, ViewCount: 10})
	createFAQ(t, store, models.FAQ{Title: "c", Question: "q", Answer: "a", IsActive: true, ViewCount: 1})
	createFAQ(t, store, models.FAQ{Title: "d", Question: "q", Answer: "a", Category: "人事", IsActive: false, ViewCount: 100})
	svc := newFAQService(store)

	popular, err := svc.Popular(ctx, 2)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "b", popular[0].Title)
	assert.Equal(t, "a", popular[1].Title)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalFAQs)
	assert.Equal(t, 3, stats.ActiveFAQs)
	assert.Equal(t, 1, stats.InactiveFAQs)
	assert.Equal(t, 114, stats.TotalViews)
	assert.InDelta(t, 14.0/3.0, stats.AvgViewsPerFAQ, 0.0001)
	require.Len(t, stats.Categories, 2)
	assert.Equal(t, "施設", stats.Categories[0].Category)
	assert.Equal(t, 2, stats.Categories[0].Count)
	assert.Equal(t, models.UncategorizedLabel, stats.Categories[1].Category)
	require.Len(t, stats.MostViewed, 3)
	assert.Equal(t, "b", stats.MostViewed[0].Title)
}

const importCSV = "\ufefftitle,question,answer,category,keywords,is_active\n" +
	"駐車場,駐車場はどこ,正面玄関の横,施設,\"駐車場,車\",true\n" +
	"食堂,食堂の営業時間,11時から14時,施設,食堂,no\n" +
	",missing title,answer,,,\n" +
	"\n"

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newFAQService(store)

	result, err := svc.Import(ctx, FormatCSV, strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "row 4")
	assert.Contains(t, result.Errors[0], "title")

	faqs, err := store.FAQs().List(ctx, true)
	require.NoError(t, err)
	require.Len(t, faqs, 2)
	byTitle := map[string]models.FAQ{}
	for _, f := range faqs {
		byTitle[f.Title] = f
	}
	assert.True(t, byTitle["駐車場"].IsActive)
	assert.Equal(t, "駐車場,車", byTitle["駐車場"].Keywords)
	assert.False(t, byTitle["食堂"].IsActive)
}

func TestImportTruncatesLongFields(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	long := strings.Repeat("あ", models.MaxTitleLength+50)
	body := `[{"title":"` + long + `","question":"q","answer":"a"}]`

	result, err := newFAQService(store).Import(ctx, FormatJSON, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	faqs, err := store.FAQs().List(ctx, true)
	require.NoError(t, err)
	require.Len(t, faqs, 1)
	assert.Equal(t, models.MaxTitleLength, len([]rune(faqs[0].Title)))
	assert.True(t, faqs[0].IsActive)
}

func TestImportRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newFAQService(store)

	_, err := svc.Import(ctx, FormatCSV, strings.NewReader("name,body\nx,y\n"))
	assert.ErrorIs(t, err, ErrInvalidFAQ)

	result, err := svc.Import(ctx, FormatCSV, strings.NewReader("title,question,answer\n,,\nonly title,,\n"))
	assert.ErrorIs(t, err, ErrEmptyImport)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Skipped)

	_, err = svc.Import(ctx, FormatJSON, strings.NewReader("{not json"))
	assert.ErrorIs(t, err, ErrInvalidFAQ)

	_, err = svc.Import(ctx, Format("pdf"), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, IsImportValidation(err))

	n, err := store.FAQs().Count(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportCapsReportedErrors(t *testing.T) {
	var b strings.Builder
	b.WriteString("title,question,answer\n")
	for i := 0; i < 15; i++ {
		b.WriteString("t,,a\n")
	}
	b.WriteString("ok,q,a\n")

	result, err := newFAQService(repository.NewMemoryStore()).Import(context.Background(), FormatCSV, strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 15, result.Skipped)
	assert.Len(t, result.Errors, maxReportedErrors)
}

func TestImportYAMLEnvelope(t *testing.T) {
	body := `faqs:
  - title: 駐車場
    question: 駐車場はどこ
    answer: 正面玄関の横
    is_active: false
  - title: 食堂
    question: 食堂の場所
    answer: 2階
`
	store := repository.NewMemoryStore()
	result, err := newFAQService(store).Import(context.Background(), FormatYAML, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)

	active, err := store.FAQs().Count(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}

func seedExportFAQs(t *testing.T, store repository.Store) {
	parkingFAQ(t, store)
	createFAQ(t, store, models.FAQ{Title: "旧規程", Question: "q", Answer: "a", IsActive: false})
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedExportFAQs(t, store)
	svc := newFAQService(store)

	var buf bytes.Buffer
	n, err := svc.Export(ctx, FormatCSV, false, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\ufefftitle,question,answer,category,keywords,is_active,view_count,created_at\n"))
	assert.Contains(t, out, "駐車場の場所")
	assert.NotContains(t, out, "旧規程")

	buf.Reset()
	n, err = svc.Export(ctx, FormatCSV, true, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), "旧規程")
}

func TestExportJSONAndYAMLEnvelope(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedExportFAQs(t, store)
	svc := newFAQService(store)

	var buf bytes.Buffer
	_, err := svc.Export(ctx, FormatJSON, true, &buf)
	require.NoError(t, err)

	var env struct {
		TotalCount int              `json:"total_count"`
		FAQs       []map[string]any `json:"faqs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, 2, env.TotalCount)
	assert.Len(t, env.FAQs, 2)

	buf.Reset()
	_, err = svc.Export(ctx, FormatYAML, false, &buf)
	require.NoError(t, err)

	var yenv struct {
		TotalCount int              `yaml:"total_count"`
		FAQs       []map[string]any `yaml:"faqs"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &yenv))
	assert.Equal(t, 1, yenv.TotalCount)
	assert.Equal(t, "駐車場の場所", yenv.FAQs[0]["title"])
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, format := range []Format{FormatCSV, FormatJSON, FormatYAML, FormatExcel} {
		t.Run(string(format), func(t *testing.T) {
			src := repository.NewMemoryStore()
			seedExportFAQs(t, src)

			var buf bytes.Buffer
			_, err := newFAQService(src).Export(ctx, format, true, &buf)
			require.NoError(t, err)

			dst := repository.NewMemoryStore()
			result, err := newFAQService(dst).Import(ctx, format, &buf)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Imported)

			active, err := dst.FAQs().Count(ctx, true)
			require.NoError(t, err)
			assert.Equal(t, int64(1), active)
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", FormatCSV},
		{".JSON", FormatJSON},
		{"yml", FormatYAML},
		{"excel", FormatExcel},
		{".xlsx", FormatExcel},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	f, err := FormatFromFilename("faqs_2024.yaml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
}
