package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.StrictPolicy()

// StripHTML removes all markup from free-text profile fields before storage.
func StripHTML(input string) string {
	return sanitizer.Sanitize(input)
}
