package ocr

import (
	"strings"
	"unicode"
)

// scriptConfidence is a heuristic over the decoded text: mostly Arabic-script
// letters, enough content and sentence punctuation all suggest a clean read.
func scriptConfidence(txt string) float32 {
	var letters, persian int
	for _, r := range txt {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Arabic, r) {
			persian++
		}
	}
	if letters == 0 {
		return 0
	}
	score := float32(0.2) + 0.5*float32(persian)/float32(letters)
	if letters > 120 {
		score += 0.1
	}
	if strings.ContainsAny(txt, "؟.!") {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// blendConfidence weights tesseract's own confidence higher when present.
func blendConfidence(ocrConf, heurConf float32) float32 {
	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
