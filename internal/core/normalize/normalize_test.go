package normalize

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{name: "empty", in: "", out: ""},
		{name: "lexical correction then compound verb", in: "وشد میکنند", out: "شد می\u200cکنند"},
		{name: "arabic kaf and yeh", in: "كتاب علي", out: "کتاب علی"},
		{name: "diacritics dropped", in: "مدرسهٔ", out: "مدرسه"},
		{name: "madda kept", in: "قرآن", out: "قرآن"},
		{name: "kasra word corrected", in: "اِقتصاد", out: "اقتصاد"},
		{name: "latin token removed", in: "متن test ۱۲۳ باقی", out: "متن ۱۲۳ باقی"},
		{name: "hyphenated token removed", in: "page-12 متن", out: "متن"},
		{name: "lone latin letter removed", in: "x متن", out: "متن"},
		{name: "latin glued to persian kept", in: "متنtest", out: "متنtest"},
		{name: "only latin", in: "hello world", out: ""},
		{name: "symbols become spaces", in: "سلام @ # دنیا", out: "سلام دنیا"},
		{name: "rlm preserved", in: "\u200fسلام", out: "\u200fسلام"},
		{name: "space before question mark", in: "سلام   ؟", out: "سلام؟\n"},
		{name: "negative prefix glued", in: "می گردد و نمی دهد", out: "می\u200cگردد و نمی\u200cدهد"},
		{name: "plural suffix", in: "كتابها  را نمی کنم", out: "کتابها\u200c را نمی\u200cکنم"},
		{name: "latin comma kept", in: "سلام, دنیا!", out: "سلام, دنیا!\n"},
		{name: "space before arabic comma colon semicolon", in: "سلام ، دنیا : خوب ;", out: "سلام، دنیا: خوب;"},
		{name: "mixed terminators", in: "خوب؟ بله! نه.", out: "خوب؟\nبله!\nنه.\n"},
		{name: "whitespace trimmed", in: "\t سلام \n", out: "سلام"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.out, Normalize(tt.in))
		})
	}
}

func TestNormalize_NilEquivalent(t *testing.T) {
	assert.Equal(t, "", NormalizePtr(nil))
	s := "وشد"
	assert.Equal(t, "شد", NormalizePtr(&s))
}

func TestNormalize_ArabicYehNeverSurvives(t *testing.T) {
	inputs := []string{"ي", "علي و علي", "يك بار ديگر", "abc ي def"}
	for _, in := range inputs {
		out := Normalize(in)
		assert.NotContains(t, out, "ي", in)
		assert.Equal(t, strings.Count(in, "ي"), strings.Count(out, "ی")-strings.Count(in, "ی"), in)
	}
}

func TestNormalize_TwoSentencesTwoLines(t *testing.T) {
	out := Normalize("این جمله اول است. این جمله دوم است.")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "این جمله اول است.", lines[0])
	assert.Equal(t, "این جمله دوم است.", lines[1])
}

func TestNormalize_InvalidUTF8IsTotal(t *testing.T) {
	in := string([]byte{0xff, ' ', 0xd8}) + "سلام" + string([]byte{0x80})
	assert.NotPanics(t, func() {
		out := Normalize(in)
		assert.Contains(t, out, "سلام")
	})
}

func TestNormalize_NotIdempotentOnNestedCorrection(t *testing.T) {
	// "وشد" inside "ووشد" is corrected to "شد", which leaves a fresh "وشد".
	once := Normalize("ووشد")
	assert.Equal(t, "وشد", once)
	assert.Equal(t, "شد", Normalize(once))
}

func TestNormalize_StableOnCleanText(t *testing.T) {
	in := "کتابها\u200c را می\u200cخوانم.\nخوب؟\n"
	assert.Equal(t, in, Normalize(in))
}

func TestNormalize_Concurrent(t *testing.T) {
	const in = "وشد میکنند. كتاب علي؟"
	want := Normalize(in)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if got := Normalize(in); got != want {
					t.Errorf("got %q, want %q", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestTrace(t *testing.T) {
	steps := Trace("وشد   test؟")
	require.Len(t, steps, len(Stages()))
	assert.Equal(t, "script", steps[0].Stage)
	assert.Equal(t, "شد   test؟", steps[1].Text)
	assert.Equal(t, "شد   ؟", steps[2].Text)
	assert.Equal(t, "شد ؟", steps[4].Text)
	assert.Equal(t, "شد؟\n", steps[len(steps)-1].Text)
	assert.Equal(t, Normalize("وشد   test؟"), steps[len(steps)-1].Text)
}

func TestRuleAccessorsReturnCopies(t *testing.T) {
	rules := LexicalRules()
	rules[0].To = "x"
	assert.NotEqual(t, "x", LexicalRules()[0].To)
	assert.Len(t, CharacterRules(), 10)
}

func TestStripLatinTokens(t *testing.T) {
	tests := []struct{ in, out string }{
		{"ab-", "-"},
		{"-ab", "-"},
		{"a_b", "a_b"},
		{"متن abc متن", "متن  متن"},
		{"abc۱", "abc۱"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, stripLatinTokens(tt.in), tt.in)
	}
}
