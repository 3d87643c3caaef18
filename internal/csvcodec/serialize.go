package csvcodec

import (
	"bufio"
	"io"
	"strings"
)

// Field extracts the string form of one column from a record
type Field[R any] func(R) string

// Column pairs a header name with its field extractor
type Column[R any] struct {
	Header string
	Value  Field[R]
}

// Split separates columns into the header and field-order slices Serialize takes
func Split[R any](cols []Column[R]) ([]string, []Field[R]) {
	headers := make([]string, len(cols))
	fields := make([]Field[R], len(cols))
	for i, c := range cols {
		headers[i] = c.Header
		fields[i] = c.Value
	}
	return headers, fields
}

// EscapeField quotes s, doubling inner quotes, only when it contains '"', ','
// or a newline.
func EscapeField(s string) string {
	if !strings.ContainsAny(s, "\",\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Serialize renders records as CSV: the header line followed by one line per
// record in input order, columns in fieldOrder, joined by '\n' with no
// trailing newline.
func Serialize[R any](headers []string, records []R, fieldOrder []Field[R]) string {
	var sb strings.Builder
	// strings.Builder never fails a write
	_ = Write(&sb, headers, records, fieldOrder)
	return sb.String()
}

// Write streams the same bytes Serialize would return to w
func Write[R any](w io.Writer, headers []string, records []R, fieldOrder []Field[R]) error {
	rw := NewRecordWriter(w, headers, fieldOrder)
	for _, rec := range records {
		rw.Write(rec)
	}
	return rw.Flush()
}

// RecordWriter emits CSV one record at a time, for sources that stream rows
// instead of holding them in a slice.
type RecordWriter[R any] struct {
	bw     *bufio.Writer
	fields []Field[R]
	values []string
	count  int
}

// NewRecordWriter writes the header line to w and returns a writer for rows
func NewRecordWriter[R any](w io.Writer, headers []string, fieldOrder []Field[R]) *RecordWriter[R] {
	rw := &RecordWriter[R]{
		bw:     bufio.NewWriter(w),
		fields: fieldOrder,
		values: make([]string, len(fieldOrder)),
	}
	writeLine(rw.bw, headers)
	return rw
}

// Write appends one record line
func (rw *RecordWriter[R]) Write(rec R) {
	for i, f := range rw.fields {
		rw.values[i] = f(rec)
	}
	rw.bw.WriteByte('\n')
	writeLine(rw.bw, rw.values)
	rw.count++
}

// Count returns the number of records written
func (rw *RecordWriter[R]) Count() int {
	return rw.count
}

// Flush writes buffered data and reports the first write error, if any
func (rw *RecordWriter[R]) Flush() error {
	return rw.bw.Flush()
}

func writeLine(bw *bufio.Writer, values []string) {
	for i, v := range values {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(EscapeField(v))
	}
}
