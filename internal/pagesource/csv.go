package pagesource

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser handles CSV files. Rows render as a markdown pipe table,
// batched into pages so each page's table stays a manageable protected
// region.
type CSVParser struct{}

const csvRowsPerPage = 40

func (p *CSVParser) Parse(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &Document{Title: titleFromFilename(filename)}
	if len(records) == 0 {
		return doc, nil
	}

	headers := records[0]
	headerRow := pipeRow(headers)
	separator := "|" + strings.Repeat(" --- |", len(headers))

	dataRows := records[1:]
	var pageTexts []string
	for i := 0; i < len(dataRows); i += csvRowsPerPage {
		end := i + csvRowsPerPage
		if end > len(dataRows) {
			end = len(dataRows)
		}
		rows := []string{headerRow, separator}
		for _, rec := range dataRows[i:end] {
			rows = append(rows, pipeRow(rec))
		}
		pageTexts = append(pageTexts, strings.Join(rows, "\n"))
	}
	if len(pageTexts) == 0 {
		pageTexts = []string{headerRow + "\n" + separator}
	}

	doc.Pages = paginate(pageTexts)
	return doc, nil
}

func pipeRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(strings.TrimSpace(c), "|", "\\|")
	}
	return "| " + strings.Join(escaped, " | ") + " |"
}
