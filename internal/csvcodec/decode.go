package csvcodec

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText turns uploaded bytes into UTF-8 text for Parse. A UTF-8 or UTF-16
// byte order mark selects that encoding and is removed. Without a BOM, valid
// UTF-8 passes through and anything else is read as Windows-1252, the usual
// output of spreadsheet "Save as CSV".
func DecodeText(b []byte) (string, error) {
	var fallback transform.Transformer = transform.Nop
	if !utf8.Valid(b) {
		fallback = charmap.Windows1252.NewDecoder()
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), b)
	if err != nil {
		return "", fmt.Errorf("failed to decode CSV text: %w", err)
	}
	return string(out), nil
}
