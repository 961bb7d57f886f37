package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var reLatinRun = regexp.MustCompile(`[0-9A-Za-z-]+`)

// stripLatinTokens removes every match of \b[0-9A-Za-z-]+\b where \b is a
// Unicode word boundary. RE2 only knows ASCII boundaries, so candidates come
// from maximal runs and the boundaries are checked by hand: a match starts at
// the first boundary inside a run and ends at the last boundary reachable
// from it, then scanning resumes at the end of the match.
//
// A lone Latin letter or number between Persian words is removed too.
func stripLatinTokens(s string) string {
	runs := reLatinRun.FindAllStringIndex(s, -1)
	if len(runs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, run := range runs {
		for i := run[0]; i < run[1]; {
			end := -1
			if atWordBoundary(s, i) {
				for k := run[1]; k > i; k-- {
					if atWordBoundary(s, k) {
						end = k
						break
					}
				}
			}
			if end < 0 {
				i++
				continue
			}
			b.WriteString(s[last:i])
			last, i = end, end
		}
	}
	b.WriteString(s[last:])
	return b.String()
}

func atWordBoundary(s string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:i])
		before = isWordRune(r)
	}
	if i < len(s) {
		r, _ := utf8.DecodeRuneInString(s[i:])
		after = isWordRune(r)
	}
	return before != after
}
