package ocr

import (
	"regexp"
)

var (
	reCRLF     = regexp.MustCompile(`\r\n?`)
	reBoxNoise = regexp.MustCompile(`(?m)^[ \t]*[\-=~]{3,}[ \t]*$`)
	reFormFeed = regexp.MustCompile(`\f`)
)

// cleanRaw drops the lines tesseract emits for rules and table borders.
// Underscore runs are word characters and stay.
func cleanRaw(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reFormFeed.ReplaceAllString(s, "\n")
	return reBoxNoise.ReplaceAllString(s, "")
}
