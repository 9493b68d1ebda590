package sheets

// csv.go encodes a grid of cell values, as returned by the values endpoint,
// into CSV text. Rows are joined by a single "\n" with no trailing newline,
// and only cells containing a comma, a double quote or a line break are quoted.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EncodeCSV converts rows of cell values into CSV text. Rows may be ragged;
// each row is emitted with exactly the cells it has. An empty grid encodes
// to the empty string.
func EncodeCSV(rows [][]any) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeCell(CellString(cell)))
		}
	}
	return b.String()
}

// escapeCell wraps s in double quotes when it contains a separator, a quote
// or a line break, doubling any embedded quotes.
func escapeCell(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// CellString returns the text form of a single cell value.
// nil becomes the empty string.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
