package sheets

import (
	"regexp"
	"strings"
)

// spreadsheetIDRegex matches the id segment of a Google Sheets URL.
var spreadsheetIDRegex = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SheetReference identifies one fetch target. Range is empty when the first
// sheet should be resolved from metadata.
type SheetReference struct {
	SpreadsheetID string
	Range         string
}

// ParseURL extracts the spreadsheet id from url. The first match wins.
// Returns ErrInvalidReference when the URL carries no id.
func ParseURL(url, rangeSpec string) (SheetReference, error) {
	m := spreadsheetIDRegex.FindStringSubmatch(url)
	if m == nil {
		return SheetReference{}, ErrInvalidReference
	}
	return SheetReference{
		SpreadsheetID: m[1],
		Range:         strings.TrimSpace(rangeSpec),
	}, nil
}

// Title returns the sheet-name portion of a range spec: everything before
// the first "!". "Sales!A1:C9" and "Sales" both yield "Sales".
func Title(rangeSpec string) string {
	name, _, _ := strings.Cut(rangeSpec, "!")
	return name
}
