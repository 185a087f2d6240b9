package deploy

import "strings"

// SanitizeFileName strips characters outside [a-zA-Z0-9._-] so derived
// filenames are safe on every filesystem the scripts land on.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
