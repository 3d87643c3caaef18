package csvcodec

import (
	"strings"
)

// Table is the raw result of Parse. Rows are not yet checked against Headers.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Parse splits CSV text into a header line and data rows.
//
// Line endings are normalized by dropping every '\r'. The header line is split
// on ',' without quote handling. Data lines honor double-quoted fields with ""
// as an escaped quote. A quoted field cannot span physical lines.
func Parse(text string) (*Table, error) {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &EmptyHeaderError{}
	}

	lines := strings.Split(text, "\n")

	headers := strings.Split(lines[0], ",")
	named := false
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
		if headers[i] != "" {
			named = true
		}
	}
	if !named {
		return nil, &EmptyHeaderError{}
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, parseLine(line))
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// parseLine scans one data line with the quote state machine
func parseLine(line string) []string {
	var (
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			row = append(row, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(c)
		}
	}
	row = append(row, strings.TrimSpace(field.String()))

	return row
}
