package session

import "unique"

// Intern returns the canonical copy of s. Records carrying the same IP
// address or User-Agent share one backing string.
func Intern(s string) string {
	if s == "" {
		return ""
	}
	return unique.Make(s).Value()
}
