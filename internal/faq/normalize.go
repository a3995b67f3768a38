package faq

import "strings"

// abbreviations maps language code to expansion dictionaries applied during
// normalization. Keys must already be lowercase.
var abbreviations = map[string]map[string]string{
	"en": {
		"u":      "you",
		"ur":     "your",
		"r":      "are",
		"pls":    "please",
		"plz":    "please",
		"thx":    "thanks",
		"dont":   "do not",
		"doesnt": "does not",
		"didnt":  "did not",
		"cant":   "cannot",
		"wont":   "will not",
		"isnt":   "is not",
		"im":     "i am",
		"ive":    "i have",
		"whats":  "what is",
		"hows":   "how is",
		"wheres": "where is",
		"wanna":  "want to",
		"gonna":  "going to",
		"info":   "information",
		"acct":   "account",
		"pwd":    "password",
	},
	"es": {
		"q":    "que",
		"xq":   "porque",
		"pq":   "porque",
		"tb":   "tambien",
		"tmb":  "tambien",
		"x":    "por",
		"d":    "de",
		"xfa":  "por favor",
		"pfa":  "por favor",
		"grax": "gracias",
	},
}

// languageMarkers drive the keyword-frequency language detector.
var languageMarkers = map[string][]string{
	"en": {"the", "is", "are", "how", "what", "where", "when", "do", "does", "can", "i", "my", "to", "of"},
	"es": {"el", "la", "los", "las", "es", "como", "que", "donde", "cuando", "puedo", "mi", "para", "por", "de"},
}

// detectLanguage picks the language whose marker words appear most often.
// Ties and empty input default to English.
func detectLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	best := "en"
	bestCount := 0
	for lang, markers := range languageMarkers {
		markerSet := make(map[string]bool, len(markers))
		for _, m := range markers {
			markerSet[m] = true
		}
		count := 0
		for _, w := range words {
			if markerSet[strings.Trim(w, ".,!?¿¡")] {
				count++
			}
		}
		if count > bestCount || (count == bestCount && lang == "en") {
			best = lang
			bestCount = count
		}
	}
	return best
}

// normalize lowercases, strips punctuation except apostrophes, collapses
// whitespace, and expands language-specific abbreviations.
func normalize(text, lang string) string {
	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'', r > 127:
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	dict := abbreviations[lang]
	words := strings.Fields(b.String())
	for i, w := range words {
		bare := strings.ReplaceAll(w, "'", "")
		if exp, ok := dict[bare]; ok {
			words[i] = exp
			continue
		}
		if exp, ok := dict[w]; ok {
			words[i] = exp
		}
	}
	return strings.Join(words, " ")
}
