package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportRow is one product line of an uploaded price list.
type ImportRow struct {
	Name          string
	BrandName     string
	Price         int
	ImageURL      string
	StockQuantity int
	Description   string
}

// RowError points at the first line that failed validation; the import
// rejects the whole file.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

func buildRow(cols []string) (ImportRow, error) {
	get := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}

	row := ImportRow{
		Name:        get(0),
		BrandName:   get(1),
		ImageURL:    get(3),
		Description: get(5),
	}
	if row.Name == "" {
		return ImportRow{}, fmt.Errorf("product name is required")
	}
	if row.BrandName == "" {
		return ImportRow{}, fmt.Errorf("brand name is required")
	}

	price, err := strconv.Atoi(get(2))
	if err != nil || price <= 0 {
		return ImportRow{}, fmt.Errorf("price must be a positive integer, got %q", get(2))
	}
	row.Price = price

	stockRaw := get(4)
	if stockRaw != "" {
		stock, err := strconv.Atoi(stockRaw)
		if err != nil || stock < 0 {
			return ImportRow{}, fmt.Errorf("stock quantity must be a non-negative integer, got %q", stockRaw)
		}
		row.StockQuantity = stock
	}
	return row, nil
}

// ParseCSV reads a semicolon-delimited price list. The first line is a
// header and is skipped.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("file must contain a header and at least one data row")
	}

	rows := make([]ImportRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := buildRow(record)
		if err != nil {
			return nil, &RowError{Row: i + 2, Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseXLSX reads the first worksheet of an uploaded workbook. Data
// starts at the first row; there is no header.
func ParseXLSX(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no worksheets")
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file must contain at least one data row")
	}

	rows := make([]ImportRow, 0, len(records))
	for i, record := range records {
		row, err := buildRow(record)
		if err != nil {
			return nil, &RowError{Row: i + 1, Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Template builds an example workbook for operators to fill in.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	example := []any{"Cola Classic", "FizzCo", 85, "https://example.com/cola.png", 12, "0.5l can"}
	for i, v := range example {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
