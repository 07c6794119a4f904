package service

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// Format is the rendering of a report
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Valid reports whether f is a known format
func (f Format) Valid() bool {
	return f == FormatJSON || f == FormatCSV || f == FormatXLSX
}

func (f Format) contentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// renderCSV writes the payload records with a header row
func renderCSV(p Payload) ([]byte, error) {
	out, err := gocsv.MarshalBytes(p.Records())
	if err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return out, nil
}

// renderXLSX writes the same rows as renderCSV to a single sheet named after the report type
func renderXLSX(p Payload) ([]byte, error) {
	csvBytes, err := renderCSV(p)
	if err != nil {
		return nil, err
	}
	rows, err := csv.NewReader(bytes.NewReader(csvBytes)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rendered rows: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := string(p.ReportType())
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
