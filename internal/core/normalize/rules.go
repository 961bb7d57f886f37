package normalize

// Rule is a literal substitution: every occurrence of From becomes To.
type Rule struct {
	From string
	To   string
}

// characterRules folds Arabic letter variants into their Persian forms and
// deletes three diacritics. Every From is a single rune and no To is a From,
// so the table can be applied in one rune-mapping pass.
var characterRules = []Rule{
	{"ك", "ک"},
	{"ي", "ی"},
	{"ئ", "ی"},
	{"أ", "ا"},
	{"ة", "ه"},
	{"ؤ", "و"},
	{"إ", "ا"},
	{"\u0670", ""}, // superscript alef
	{"\u0654", ""}, // hamza above
	{"\u0651", ""}, // shadda
}

// lexicalRules are known OCR misreadings. Applied in order, each rule sees the
// output of the previous ones.
var lexicalRules = []Rule{
	{"پسرده", "پرده"},
	{"اینن", "این"},
	{"خلسوت", "خلوت"},
	{"نضورد", "نخورد"},
	{"سبصد", "سیصد"},
	{"صایون", "صابون"},
	{"وشد", "شد"},
	{"میکنند", "می\u200cکنند"},
	{"میشود", "می\u200cشود"},
	{"میکرد", "می\u200cکرد"},
	{"میکنم", "می\u200cکنم"},
	{"میکنی", "می\u200cکنی"},
	{"میکسرد", "می\u200cکرد"},
	{"میکسند", "می\u200cکنند"},
	{"اِقتصاد", "اقتصاد"},
	{"اِجتماع", "اجتماع"},
	{"اِنسان", "انسان"},
	{"اِمکان", "امکان"},
}

// verbStems follow a "می" or "نمی" prefix in the compound verbs that get a ZWNJ.
var verbStems = []string{
	"باشد", "کند", "شود", "روم", "کنم", "کنی", "کنید", "کنیم", "رسد", "گردد", "دهد",
}

// CharacterRules returns a copy of the script normalization table.
func CharacterRules() []Rule { return append([]Rule(nil), characterRules...) }

// LexicalRules returns a copy of the OCR correction table.
func LexicalRules() []Rule { return append([]Rule(nil), lexicalRules...) }
