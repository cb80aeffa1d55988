package tts

import "unicode"

// scriptThreshold is the share of letters a script needs before the text
// is treated as that language.
const scriptThreshold = 0.3

var scripts = []struct {
	lang  string
	table *unicode.RangeTable
}{
	{"hi", unicode.Devanagari},
	{"pa", unicode.Gurmukhi},
	{"te", unicode.Telugu},
	{"ta", unicode.Tamil},
}

// DetectLanguage guesses the language of text from its script. Marathi
// shares Devanagari with Hindi and is reported as "hi".
func DetectLanguage(text string) string {
	counts := make([]int, len(scripts))
	total := 0
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		total++
		for i, s := range scripts {
			if unicode.Is(s.table, r) {
				counts[i]++
				break
			}
		}
	}
	if total == 0 {
		return "en"
	}
	for i, s := range scripts {
		if float64(counts[i])/float64(total) > scriptThreshold {
			return s.lang
		}
	}
	return "en"
}

var cambLanguageIDs = map[string]int{
	"hi": 81,
	"pa": 148,
	"mr": 101,
	"te": 129,
	"ta": 125,
}

// LanguageID maps an app language code to a CAMB.AI language id.
func LanguageID(lang string) int {
	if id, ok := cambLanguageIDs[lang]; ok {
		return id
	}
	return 1
}
