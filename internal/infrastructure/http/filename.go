package http

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// sanitizeFilename reduces an uploaded file name to a safe base name: path
// separators become spaces, whitespace runs become "_", anything outside
// ASCII letters, digits and "._-" is dropped, and leading or trailing dots
// and underscores are trimmed. The result may be empty.
func sanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
