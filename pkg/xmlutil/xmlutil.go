// Package xmlutil provides XML escaping helpers used when injecting
// untrusted catalog text into XML-delimited prompt templates.
package xmlutil

import (
	"encoding/xml"
	"strings"
)

// Escape replaces characters with special meaning in XML so that external
// data cannot break out of the surrounding tags in a prompt template.
func Escape(s string) string {
	var buf strings.Builder
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		// EscapeText only fails on invalid UTF-8; return original on error.
		return s
	}
	return buf.String()
}
