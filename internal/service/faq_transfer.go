package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/repository"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Format is a bulk FAQ file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatExcel Format = "xlsx"
)

// ExcelSheetName is the sheet written by Excel exports.
const ExcelSheetName = "FAQ一覧"

// maxReportedErrors caps the row errors returned by an import.
const maxReportedErrors = 10

const utf8BOM = "\ufeff"

var exportColumns = []string{"title", "question", "answer", "category", "keywords", "is_active", "view_count", "created_at"}

// ParseFormat maps a format name or file extension onto a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatFromFilename picks the format from a file's extension.
func FormatFromFilename(filename string) (Format, error) {
	return ParseFormat(filepath.Ext(filename))
}

// ContentType is the MIME type of an export in f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatYAML:
		return "application/yaml; charset=utf-8"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Extension is the file extension for f, without a dot.
func (f Format) Extension() string {
	return string(f)
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported int      `json:"imported_count"`
	Skipped  int      `json:"skipped_count"`
	Errors   []string `json:"errors"`
}

// importRecord is one FAQ as read from an import file. Row is the 1-based
// line or item number used in error messages.
type importRecord struct {
	Row      int    `json:"-" yaml:"-"`
	Title    string `json:"title" yaml:"title"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
	Category string `json:"category" yaml:"category"`
	Keywords string `json:"keywords" yaml:"keywords"`
	IsActive *bool  `json:"is_active" yaml:"is_active"`
}

// exportRecord is one FAQ as written by JSON and YAML exports.
type exportRecord struct {
	ID        uint      `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Question  string    `json:"question" yaml:"question"`
	Answer    string    `json:"answer" yaml:"answer"`
	Category  string    `json:"category" yaml:"category"`
	Keywords  string    `json:"keywords" yaml:"keywords"`
	IsActive  bool      `json:"is_active" yaml:"is_active"`
	ViewCount int       `json:"view_count" yaml:"view_count"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

type exportEnvelope struct {
	ExportDate time.Time      `json:"export_date" yaml:"export_date"`
	TotalCount int            `json:"total_count" yaml:"total_count"`
	FAQs       []exportRecord `json:"faqs" yaml:"faqs"`
}

type importEnvelope struct {
	FAQs []importRecord `json:"faqs" yaml:"faqs"`
}

// Import reads FAQs from r and creates them in one transaction. Rows
// missing a title, question or answer are skipped and reported.
func (s *FAQService) Import(ctx context.Context, format Format, r io.Reader) (*ImportResult, error) {
	records, err := decodeImport(format, r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []string{}}
	var faqs []*models.FAQ
	for _, rec := range records {
		faq, problem := rec.toFAQ()
		if problem != "" {
			result.Skipped++
			if len(result.Errors) < maxReportedErrors {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", rec.Row, problem))
			}
			continue
		}
		faqs = append(faqs, faq)
	}
	if len(faqs) == 0 {
		return result, ErrEmptyImport
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		for _, faq := range faqs {
			if err := tx.FAQs().Create(ctx, faq); err != nil {
				return fmt.Errorf("create faq %q: %w", faq.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Imported = len(faqs)
	s.metrics.Imported(ctx, result.Imported)
	s.log.Info("FAQ import finished", "format", format, "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

// Export writes FAQs to w in format. Inactive FAQs are included only when
// includeInactive is set.
func (s *FAQService) Export(ctx context.Context, format Format, includeInactive bool, w io.Writer) (int, error) {
	faqs, err := s.store.FAQs().List(ctx, includeInactive)
	if err != nil {
		return 0, fmt.Errorf("list faqs: %w", err)
	}

	switch format {
	case FormatCSV:
		err = exportCSV(w, faqs)
	case FormatJSON:
		err = json.NewEncoder(w).Encode(s.envelope(faqs))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err = enc.Encode(s.envelope(faqs)); err == nil {
			err = enc.Close()
		}
	case FormatExcel:
		err = exportExcel(w, faqs)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return 0, fmt.Errorf("write %s export: %w", format, err)
	}
	return len(faqs), nil
}

func (s *FAQService) envelope(faqs []models.FAQ) exportEnvelope {
	env := exportEnvelope{
		ExportDate: s.now(),
		TotalCount: len(faqs),
		FAQs:       make([]exportRecord, 0, len(faqs)),
	}
	for _, f := range faqs {
		env.FAQs = append(env.FAQs, exportRecord{
			ID:        f.ID,
			Title:     f.Title,
			Question:  f.Question,
			Answer:    f.Answer,
			Category:  f.Category,
			Keywords:  f.Keywords,
			IsActive:  f.IsActive,
			ViewCount: f.ViewCount,
			CreatedAt: f.CreatedAt,
			UpdatedAt: f.UpdatedAt,
		})
	}
	return env
}

func (rec importRecord) toFAQ() (*models.FAQ, string) {
	faq := &models.FAQ{
		Title:    truncateRunes(strings.TrimSpace(rec.Title), models.MaxTitleLength),
		Question: truncateRunes(strings.TrimSpace(rec.Question), models.MaxQuestionLength),
		Answer:   truncateRunes(strings.TrimSpace(rec.Answer), models.MaxAnswerLength),
		Category: truncateRunes(strings.TrimSpace(rec.Category), models.MaxCategoryLength),
		Keywords: strings.TrimSpace(rec.Keywords),
		IsActive: rec.IsActive == nil || *rec.IsActive,
	}
	var missing []string
	if faq.Title == "" {
		missing = append(missing, "title")
	}
	if faq.Question == "" {
		missing = append(missing, "question")
	}
	if faq.Answer == "" {
		missing = append(missing, "answer")
	}
	if len(missing) > 0 {
		return nil, "missing " + strings.Join(missing, ", ")
	}
	return faq, ""
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// parseActive reads a spreadsheet is_active cell. Blank means active.
func parseActive(v string) *bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return nil
	}
	active := v == "true" || v == "1" || v == "yes" || v == "on"
	return &active
}

func decodeImport(format Format, r io.Reader) ([]importRecord, error) {
	switch format {
	case FormatCSV:
		return decodeCSV(r)
	case FormatJSON:
		return decodeJSON(r)
	case FormatYAML:
		return decodeYAML(r)
	case FormatExcel:
		return decodeExcel(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func decodeCSV(r io.Reader) ([]importRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid csv: %v", ErrInvalidFAQ, err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}
	return recordsFromRows(rows)
}

// recordsFromRows maps a header row plus data rows onto records. Data rows
// are numbered from 2, matching spreadsheet line numbers.
func recordsFromRows(rows [][]string) ([]importRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidFAQ)
	}

	columns := make(map[string]int)
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"title", "question", "answer"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidFAQ, required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]importRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		records = append(records, importRecord{
			Row:      i + 2,
			Title:    cell(row, "title"),
			Question: cell(row, "question"),
			Answer:   cell(row, "answer"),
			Category: cell(row, "category"),
			Keywords: cell(row, "keywords"),
			IsActive: parseActive(cell(row, "is_active")),
		})
	}
	return records, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func decodeJSON(r io.Reader) ([]importRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	var records []importRecord
	if err := json.Unmarshal(data, &records); err != nil {
		var env importEnvelope
		if envErr := json.Unmarshal(data, &env); envErr != nil {
			return nil, fmt.Errorf("%w: invalid json: %v", ErrInvalidFAQ, err)
		}
		records = env.FAQs
	}
	return numberRecords(records), nil
}

func decodeYAML(r io.Reader) ([]importRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var records []importRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		var env importEnvelope
		if envErr := yaml.Unmarshal(data, &env); envErr != nil {
			return nil, fmt.Errorf("%w: invalid yaml: %v", ErrInvalidFAQ, err)
		}
		records = env.FAQs
	}
	return numberRecords(records), nil
}

func numberRecords(records []importRecord) []importRecord {
	for i := range records {
		records[i].Row = i + 1
	}
	return records
}

func decodeExcel(r io.Reader) ([]importRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid xlsx: %v", ErrInvalidFAQ, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidFAQ)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return recordsFromRows(rows)
}

func exportCSV(w io.Writer, faqs []models.FAQ) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return err
	}
	for _, f := range faqs {
		if err := cw.Write(exportRow(f)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(f models.FAQ) []string {
	return []string{
		f.Title,
		f.Question,
		f.Answer,
		f.Category,
		f.Keywords,
		strconv.FormatBool(f.IsActive),
		strconv.Itoa(f.ViewCount),
		f.CreatedAt.Format(time.RFC3339),
	}
}

func exportExcel(w io.Writer, faqs []models.FAQ) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(ExcelSheetName); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(ExcelSheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	for col, name := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(ExcelSheetName, cell, name); err != nil {
			return err
		}
	}
	for i, faq := range faqs {
		for col, value := range exportRow(faq) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(ExcelSheetName, cell, value); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return err
	}
	return nil
}

// IsImportValidation reports whether err rejects the import file itself.
func IsImportValidation(err error) bool {
	return errors.Is(err, ErrInvalidFAQ) || errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrEmptyImport)
}
