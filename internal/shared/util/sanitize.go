package util

import "strings"

// SanitizeFileName flattens path separators and traversal sequences so the
// name is safe to embed in a storage key. A name with nothing left after
// cleaning becomes "document".
func SanitizeFileName(name string) string {
	s := strings.TrimSpace(name)
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "document"
	}
	return s
}
