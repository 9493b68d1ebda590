// Package export converts a loaded sheet back into a downloadable workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the workbooks written by WriteXLSX.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxSheetNameLen is the worksheet name limit enforced by Excel.
const maxSheetNameLen = 31

// DefaultSheetName is used when the title is empty after cleaning.
const DefaultSheetName = "Sheet1"

// SheetName turns a sheet title into a valid worksheet name.
func SheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "'")

	if runes := []rune(name); len(runes) > maxSheetNameLen {
		name = string(runes[:maxSheetNameLen])
	}
	if name == "" {
		return DefaultSheetName
	}
	return name
}

// ReadCSV parses CSV text as written by sheets.EncodeCSV. Rows may have
// different lengths.
func ReadCSV(csvText string) ([][]string, error) {
	if csvText == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(csvText))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

// WriteXLSX writes csvText as a single-sheet workbook to w. The first row is
// bold. Cells whose text is a plain decimal number are stored as numbers;
// everything else, including values like "007", stays text.
func WriteXLSX(w io.Writer, title, csvText string) error {
	records, err := ReadCSV(csvText)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(title)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	for i, record := range records {
		row := make([]interface{}, len(record))
		for j, field := range record {
			value := cellValue(field)
			if i == 0 {
				row[j] = excelize.Cell{StyleID: headerStyle, Value: value}
			} else {
				row[j] = value
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// cellValue returns a float64 for canonical decimal text and the string
// otherwise.
func cellValue(field string) interface{} {
	n, err := strconv.ParseFloat(field, 64)
	if err != nil || strconv.FormatFloat(n, 'f', -1, 64) != field {
		return field
	}
	return n
}
