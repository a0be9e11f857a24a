package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"ai-docqa-be/internal/entity"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetHandler extracts XLSX workbooks. Each sheet becomes one
// segment; rows are rendered as " | "-delimited text so tabular structure
// survives chunking and retrieval.
type SpreadsheetHandler struct{}

var _ Handler = SpreadsheetHandler{}

func NewSpreadsheetHandler() SpreadsheetHandler {
	return SpreadsheetHandler{}
}

func (SpreadsheetHandler) Format() entity.DocumentFormat {
	return entity.FormatSpreadsheet
}

func (SpreadsheetHandler) Extract(_ context.Context, raw []byte) ([]entity.Segment, error) {
	book, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", ErrExtractionFailed, err)
	}
	defer book.Close()

	var segments []entity.Segment
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: read sheet %q: %w", ErrExtractionFailed, sheet, err)
		}

		var lines []string
		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
		if len(lines) == 0 {
			continue
		}

		segments = append(segments, entity.Segment{
			Text: strings.Join(lines, "\n"),
			Locator: entity.SourceLocator{
				Kind:  entity.LocatorSheet,
				Label: sheet,
				Start: 1,
				End:   len(rows),
			},
			Confidence: 1.0,
		})
	}
	return segments, nil
}
