package aimerge

import (
	"strings"
)

// ParseResponse extracts the merged value from a raw completion response.
// Models decorate answers despite instructions, so surrounding
// whitespace and a wrapping markdown code fence (with or without a
// language tag such as "json") are stripped.
func ParseResponse(raw string) []byte {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if end := strings.LastIndex(s, "```"); end > 0 {
			body := s[3:end]
			// Drop a language tag on the opening fence line.
			if nl := strings.IndexByte(body, '\n'); nl >= 0 {
				firstLine := strings.TrimSpace(body[:nl])
				if firstLine == "" || isFenceTag(firstLine) {
					body = body[nl+1:]
				}
			}
			s = strings.TrimSpace(body)
		}
	}

	return []byte(s)
}

// isFenceTag reports whether a fence's first line is a language tag
// rather than content ("json", "text", "yaml", ...).
func isFenceTag(line string) bool {
	if len(line) > 16 {
		return false
	}
	for _, r := range line {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
