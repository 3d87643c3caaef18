package csvcodec

import "strings"

// ParseBool coerces the CSV aliases true/1/yes and false/0/no, ignoring case
// and surrounding space. Anything else, including "", yields nil.
func ParseBool(s string) *bool {
	var b bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		b = true
	case "false", "0", "no":
		b = false
	default:
		return nil
	}
	return &b
}

// FormatBool renders an optional boolean for export; nil becomes ""
func FormatBool(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "true"
	}
	return "false"
}
