// Package preview turns raw pane captures into one-line previews.
package preview

import (
	"regexp"
	"strings"
)

// csiPattern matches CSI sequences: ESC [ <params> <intermediates> <final>.
// Partial or malformed sequences do not match and pass through unchanged.
var csiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// StripANSI removes CSI control sequences (colors, cursor movement) from s.
func StripANSI(s string) string {
	return csiPattern.ReplaceAllString(s, "")
}

// ExtractLastLine returns the last non-blank line of a capture with control
// sequences removed and surrounding whitespace trimmed, or "" if none.
func ExtractLastLine(raw string) string {
	lines := strings.Split(raw, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(StripANSI(lines[i])); line != "" {
			return line
		}
	}
	return ""
}
