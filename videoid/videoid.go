// Package videoid extracts canonical YouTube video identifiers from
// free-form user input.
package videoid

import (
	"regexp"
	"strings"
)

// idLength is the fixed length of a YouTube video identifier.
const idLength = 11

var (
	// watchPattern matches share links, embed links, and watch-query
	// links and captures the identifier segment.
	watchPattern = regexp.MustCompile(`^.*((youtu\.be/)|(v/)|(/u/\w/)|(embed/)|(watch\?))\??v?=?([^#&?]*).*`)

	// livePattern matches live-slug URLs.
	livePattern = regexp.MustCompile(`youtube\.com/live/([a-zA-Z0-9_-]{11})`)

	// idShape validates a bare identifier.
	idShape = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// Extract parses user input (a URL or a raw id) into a canonical video
// identifier. The second return value is false when no identifier could
// be found; this is a normal negative result, not an error.
func Extract(input string) (string, bool) {
	input = strings.TrimSpace(input)

	// Already an identifier.
	if len(input) == idLength && !strings.ContainsAny(input, "/.") {
		return input, true
	}

	// Standard watch/share/embed URLs.
	if m := watchPattern.FindStringSubmatch(input); m != nil {
		if id := m[7]; idShape.MatchString(id) {
			return id, true
		}
	}

	// Live-slug URLs.
	if m := livePattern.FindStringSubmatch(input); m != nil {
		return m[1], true
	}

	return "", false
}
