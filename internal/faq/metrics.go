package faq

import "strings"

// Metric weights for the lexical blend. They sum to 1.0 so a perfect match
// scores 1.0 before penalty and bonus adjustments.
const (
	jaccardWeight     = 0.3
	levenshteinWeight = 0.2
	wordOverlapWeight = 0.3
	bigramWeight      = 0.2

	negationPenaltyValue = 0.4
	contextBonusStep     = 0.1
	contextBonusMax      = 0.2
)

// defaultAntonymPairs lists phrase pairs whose presence on opposite sides
// flips the meaning of otherwise near-identical questions.
var defaultAntonymPairs = [][2]string{
	{"check in", "check out"},
	{"log in", "log out"},
	{"sign in", "sign out"},
	{"sign up", "sign out"},
	{"enable", "disable"},
	{"open", "close"},
	{"start", "stop"},
	{"activate", "deactivate"},
	{"subscribe", "unsubscribe"},
	{"install", "uninstall"},
	{"lock", "unlock"},
	{"upgrade", "downgrade"},
	{"deposit", "withdraw"},
	{"arrival", "departure"},
	{"before", "after"},
	{"increase", "decrease"},
}

// defaultTopicClusters group domain vocabulary; shared cluster membership
// earns a small bonus for domain-relevant partial matches.
var defaultTopicClusters = map[string][]string{
	"hotel":    {"hotel", "room", "booking", "reservation", "stay", "guest", "suite", "lobby"},
	"auth":     {"password", "login", "account", "authentication", "credentials", "username", "email"},
	"billing":  {"payment", "invoice", "refund", "charge", "price", "cost", "billing", "subscription"},
	"shipping": {"shipping", "delivery", "order", "tracking", "package", "return", "courier"},
	"schedule": {"calendar", "appointment", "meeting", "schedule", "availability", "slot", "reschedule"},
	"support":  {"help", "support", "issue", "problem", "error", "contact", "agent"},
}

// lexicalScore blends four similarity metrics over normalized text.
func lexicalScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	return jaccardWeight*jaccardSimilarity(wordsA, wordsB) +
		levenshteinWeight*levenshteinSimilarity(a, b) +
		wordOverlapWeight*wordOverlapRatio(wordsA, wordsB) +
		bigramWeight*bigramSimilarity(wordsA, wordsB)
}

// jaccardSimilarity is |A∩B| / |A∪B| over word sets.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := toSet(a)
	setB := toSet(b)
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// levenshteinSimilarity is 1 minus the edit distance normalized by the
// longer string's length.
func levenshteinSimilarity(a, b string) float64 {
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longer)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// wordOverlapRatio is the fraction of the shorter text's words that appear
// in the other text.
func wordOverlapRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shorter, longer := a, b
	if len(b) < len(a) {
		shorter, longer = b, a
	}
	longSet := toSet(longer)
	matched := 0
	for _, w := range shorter {
		if longSet[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(shorter))
}

// bigramSimilarity is the Dice coefficient over consecutive word pairs.
func bigramSimilarity(a, b []string) float64 {
	bigramsA := wordBigrams(a)
	bigramsB := wordBigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0
	}
	inter := 0
	for bg := range bigramsA {
		if bigramsB[bg] {
			inter++
		}
	}
	return 2 * float64(inter) / float64(len(bigramsA)+len(bigramsB))
}

func wordBigrams(words []string) map[string]bool {
	if len(words) < 2 {
		return nil
	}
	out := make(map[string]bool, len(words)-1)
	for i := 0; i+1 < len(words); i++ {
		out[words[i]+" "+words[i+1]] = true
	}
	return out
}

// negationPenalty returns the flat penalty when the two texts sit on
// opposite halves of a known antonym pair. Without this, lexical overlap
// ranks opposite-meaning questions as near-duplicates.
func negationPenalty(a, b string, pairs [][2]string) float64 {
	for _, pair := range pairs {
		if containsPhrase(a, pair[0]) && containsPhrase(b, pair[1]) {
			return negationPenaltyValue
		}
		if containsPhrase(a, pair[1]) && containsPhrase(b, pair[0]) {
			return negationPenaltyValue
		}
	}
	return 0
}

// containsPhrase matches a phrase on word boundaries within normalized text.
func containsPhrase(text, phrase string) bool {
	idx := strings.Index(text, phrase)
	for idx >= 0 {
		before := idx == 0 || text[idx-1] == ' '
		end := idx + len(phrase)
		after := end == len(text) || text[end] == ' '
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], phrase)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

// contextBonus rewards both texts mentioning the same topic cluster.
func contextBonus(a, b string, clusters map[string][]string) float64 {
	wordsA := toSet(strings.Fields(a))
	wordsB := toSet(strings.Fields(b))
	bonus := 0.0
	for _, cluster := range clusters {
		hitA, hitB := false, false
		for _, w := range cluster {
			if wordsA[w] {
				hitA = true
			}
			if wordsB[w] {
				hitB = true
			}
			if hitA && hitB {
				break
			}
		}
		if hitA && hitB {
			bonus += contextBonusStep
			if bonus >= contextBonusMax {
				return contextBonusMax
			}
		}
	}
	return bonus
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
