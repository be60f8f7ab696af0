package middleware

import (
	"fmt"
	"strings"
)

// Input validation and sanitization utilities

// ValidateImageContentType accepts only image MIME types on upload. An
// empty declared type passes; the store falls back to octet-stream.
func ValidateImageContentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	base := contentType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(strings.ToLower(base))
	if !strings.HasPrefix(base, "image/") {
		return fmt.Errorf("unsupported content type: %s (image/* required)", contentType)
	}
	return nil
}

// SanitizeFilename strips path separators and control characters so a
// client-supplied name is safe to embed in an object key.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}

	var result strings.Builder
	for _, r := range name {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}

	out := strings.TrimSpace(result.String())
	if out == "" || out == "." || out == ".." {
		return "image"
	}
	return out
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
