package parser

import (
	"bytes"
	"strings"
)

// ReplyText decodes raw controller bytes for logging, replacing invalid UTF-8.
func ReplyText(raw []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), "�"))
}

// IsBusy reports whether a reply carries the busy marker, either in the
// decoded text or in the raw bytes.
func IsBusy(raw []byte, marker string) bool {
	if marker == "" || len(raw) == 0 {
		return false
	}
	return strings.Contains(ReplyText(raw), marker) || bytes.Contains(raw, []byte(marker))
}
