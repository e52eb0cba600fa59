// Package detect classifies a constitution as untouched template or
// human-edited content, so destructive re-initialization can be gated.
package detect

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"
)

var templateMarkers = []string{
	"[PROJECT_NAME]",
	"[PRINCIPLE_1_NAME]",
	"[PRINCIPLE_2_NAME]",
	"[YOUR_PROJECT]",
	"[TEAM_NAME]",
	"TODO:",
	"FIXME:",
}

// TemplateMarkers returns the placeholders that identify an unfilled template.
func TemplateMarkers() []string {
	return append([]string(nil), templateMarkers...)
}

// IsCustomized reports whether the document at path carries content a human
// wrote. A missing document is not customized. A document that exists but
// cannot be read or decoded is treated as customized.
func IsCustomized(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return !errors.Is(err, fs.ErrNotExist)
	}
	if !utf8.Valid(data) {
		return true
	}
	return hasCustomContent(string(data))
}

func hasCustomContent(content string) bool {
	for _, marker := range templateMarkers {
		if strings.Contains(content, marker) {
			return false
		}
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return true
		}
	}
	return false
}
