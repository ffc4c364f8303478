package repository

import (
	"context"
	"time"

	"github.com/xuri/excelize/v2"

	"flight-stats/internal/flights"
	"flight-stats/internal/models"
	"flight-stats/pkg/logging"
)

// SpreadsheetSource reads the flight table from one worksheet of an .xlsx workbook.
// The first row of the sheet is the header.
type SpreadsheetSource struct {
	Path    string
	Sheet   string
	MaxRows int

	logger *logging.StructuredLogger
}

// NewSpreadsheetSource creates a source for path. Empty sheet and non-positive
// maxRows fall back to DefaultSheetName and DefaultMaxRows.
func NewSpreadsheetSource(path, sheet string, maxRows int, logger *logging.StructuredLogger) *SpreadsheetSource {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &SpreadsheetSource{Path: path, Sheet: sheet, MaxRows: maxRows, logger: logger}
}

func (s *SpreadsheetSource) Kind() string { return "spreadsheet" }

func (s *SpreadsheetSource) Describe() string {
	return s.Path + "#" + s.Sheet
}

func (s *SpreadsheetSource) fail(reason string, err error) error {
	return &models.DataSourceError{Source: s.Describe(), Reason: reason, Err: err}
}

// Load reads up to MaxRows data rows below the header.
func (s *SpreadsheetSource) Load(ctx context.Context) (*flights.Table, error) {
	start := time.Now()

	wb, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, s.fail("cannot open workbook", err)
	}
	defer wb.Close()

	if i, err := wb.GetSheetIndex(s.Sheet); err != nil || i < 0 {
		return nil, s.fail("sheet not found", err)
	}

	rows, err := wb.Rows(s.Sheet)
	if err != nil {
		return nil, s.fail("cannot read sheet", err)
	}
	defer rows.Close()

	raw := excelize.Options{RawCellValue: true}

	if !rows.Next() {
		return nil, s.fail("sheet has no header row", rows.Error())
	}
	header, err := rows.Columns(raw)
	if err != nil {
		return nil, s.fail("cannot read header row", err)
	}
	idx, columns, err := headerIndex(header)
	if err != nil {
		return nil, s.fail("unexpected header", err)
	}

	records := make([]models.FlightRecord, 0, s.MaxRows)
	line := 1
	for len(records) < s.MaxRows && rows.Next() {
		line++
		if line%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, s.fail("load cancelled", err)
			}
		}

		cells, err := rows.Columns(raw)
		if err != nil {
			return nil, s.fail("cannot read row", err)
		}
		if blank(cells) {
			continue
		}

		rec, err := parseRow(cells, idx, line)
		if err != nil {
			return nil, s.fail("malformed row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Error(); err != nil {
		return nil, s.fail("cannot read sheet", err)
	}

	if s.logger != nil {
		s.logger.Debug(ctx, "[SHEET_READ] Worksheet parsed", logging.Fields{
			"path":        s.Path,
			"sheet":       s.Sheet,
			"rows":        len(records),
			"columns":     len(columns),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}

	return flights.NewTable(columns, records), nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
