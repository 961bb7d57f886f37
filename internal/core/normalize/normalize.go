// Package normalize cleans raw Persian OCR output.
//
// Pipeline order
//  1. script: Arabic letter variants to Persian, three diacritics dropped
//  2. lexical: known OCR misreadings replaced, sequentially
//  3. latin-tokens: whole Latin/digit/hyphen words removed
//  4. non-text: anything but letters, digits, whitespace, ZWNJ/ZWJ/LRM/RLM,
//     the Arabic block and sentence punctuation becomes a space
//  5. whitespace: runs collapsed to one space, trimmed
//  6. compound-verbs: "می"/"نمی" + stem joined with a ZWNJ
//  7. plural-suffix: "ها" + space becomes "ها" + ZWNJ + space
//  8. punctuation-spacing: whitespace before punctuation removed
//  9. paragraphs: one line per sentence
//
// Whitespace and word characters have their Unicode meaning throughout.
// The package holds no mutable state and is safe for concurrent use.
package normalize

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ZWNJ is the zero-width non-joiner.
const ZWNJ = "\u200c"

// wsClass is the body of a character class matching Unicode whitespace.
const wsClass = `\t\n\v\f\r\x{1C}-\x{1F}\x{85}\p{Z}`

var (
	reNonText = regexp.MustCompile(
		`[^\p{L}\p{N}_` + wsClass + `\x{200C}-\x{200F}\x{0600}-\x{06FF}.,:;!?]`)
	reSpaceRun     = regexp.MustCompile(`[` + wsClass + `]+`)
	reCompoundVerb = regexp.MustCompile(
		`(می|نمی)[` + wsClass + `]+(` + strings.Join(verbStems, "|") + `)`)
	rePluralSuffix   = regexp.MustCompile(`(ها)[` + wsClass + `]+`)
	rePunctSpacing   = regexp.MustCompile(`[` + wsClass + `]+([؟،,.:!;])`)
	reSentenceEnding = regexp.MustCompile(`([؟.!?])[` + wsClass + `]*`)
)

var scriptMap, scriptDrop = compileCharacterRules(characterRules)

// pool of stage 1 transformer chains; a chain is stateful while in use
var scriptChains = sync.Pool{
	New: func() any {
		return transform.Chain(
			runes.Remove(runes.Predicate(func(r rune) bool { return scriptDrop[r] })),
			runes.Map(func(r rune) rune {
				if to, ok := scriptMap[r]; ok {
					return to
				}
				return r
			}),
		)
	},
}

type stage struct {
	name  string
	apply func(string) string
}

var stages = []stage{
	{"script", normalizeScript},
	{"lexical", correctLexical},
	{"latin-tokens", stripLatinTokens},
	{"non-text", stripNonText},
	{"whitespace", collapseWhitespace},
	{"compound-verbs", glueCompoundVerbs},
	{"plural-suffix", gluePluralSuffix},
	{"punctuation-spacing", fixPunctuationSpacing},
	{"paragraphs", segmentParagraphs},
}

// Normalize returns the cleaned, one-sentence-per-line form of text.
// It returns "" for empty input and never fails.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	for _, st := range stages {
		text = st.apply(text)
	}
	return text
}

// NormalizePtr is Normalize for optional text; nil yields "".
func NormalizePtr(text *string) string {
	if text == nil {
		return ""
	}
	return Normalize(*text)
}

// StageOutput is the text as it left one pipeline stage.
type StageOutput struct {
	Stage string `json:"stage"`
	Text  string `json:"text"`
}

// Trace runs the pipeline and records the output of every stage.
func Trace(text string) []StageOutput {
	out := make([]StageOutput, 0, len(stages))
	for _, st := range stages {
		if text != "" {
			text = st.apply(text)
		}
		out = append(out, StageOutput{Stage: st.name, Text: text})
	}
	return out
}

// Stages lists the pipeline stage names in execution order.
func Stages() []string {
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.name
	}
	return names
}

func compileCharacterRules(rules []Rule) (map[rune]rune, map[rune]bool) {
	mapped := make(map[rune]rune, len(rules))
	dropped := make(map[rune]bool)
	for _, r := range rules {
		from, to := []rune(r.From), []rune(r.To)
		if len(from) != 1 || len(to) > 1 {
			panic("normalize: character rule must map one rune to at most one rune: " + r.From)
		}
		if len(to) == 0 {
			dropped[from[0]] = true
			continue
		}
		mapped[from[0]] = to[0]
	}
	return mapped, dropped
}

func normalizeScript(s string) string {
	t := scriptChains.Get().(transform.Transformer)
	defer func() {
		t.Reset()
		scriptChains.Put(t)
	}()
	out, _, err := transform.String(t, s)
	if err != nil {
		return replaceSequential(s, characterRules)
	}
	return out
}

func correctLexical(s string) string { return replaceSequential(s, lexicalRules) }

func replaceSequential(s string, rules []Rule) string {
	for _, r := range rules {
		s = strings.ReplaceAll(s, r.From, r.To)
	}
	return s
}

func stripNonText(s string) string { return reNonText.ReplaceAllString(s, " ") }

func collapseWhitespace(s string) string {
	s = reSpaceRun.ReplaceAllString(s, " ")
	return strings.TrimFunc(s, isSpace)
}

func glueCompoundVerbs(s string) string {
	return reCompoundVerb.ReplaceAllString(s, "${1}"+ZWNJ+"${2}")
}

func gluePluralSuffix(s string) string {
	return rePluralSuffix.ReplaceAllString(s, "${1}"+ZWNJ+" ")
}

func fixPunctuationSpacing(s string) string {
	return rePunctSpacing.ReplaceAllString(s, "${1}")
}

func segmentParagraphs(s string) string {
	return reSentenceEnding.ReplaceAllString(s, "${1}\n")
}

// isSpace matches the runes of wsClass.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1C && r <= 0x1F)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}
