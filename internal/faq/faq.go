// Package faq matches a free-form question against a configured FAQ list
// using embedding similarity when available and a weighted blend of lexical
// metrics as a fallback.
package faq

import (
	"context"
	"sort"

	"github.com/relaydesk/relay/internal/embedding"
	"go.uber.org/zap"
)

// Entry is a single FAQ item supplied via tool configuration.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
}

// Candidate is a scored FAQ entry.
type Candidate struct {
	Entry      Entry   `json:"entry"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"` // "semantic" or "lexical"
}

// MatchConfig tunes the matcher. Zero values fall back to package defaults.
type MatchConfig struct {
	Threshold     float64             // minimum absolute confidence
	Language      string              // "en", "es", or "" for detection
	AntonymPairs  [][2]string         // overrides defaultAntonymPairs
	TopicClusters map[string][]string // overrides defaultTopicClusters
}

// Result holds the match outcome and the surviving ranked candidates.
type Result struct {
	Matched    *Entry      `json:"matched_faq"`
	Candidates []Candidate `json:"candidates"`
	Method     string      `json:"method"`
}

// DefaultThreshold is the absolute confidence floor when none is configured.
const DefaultThreshold = 0.55

// Relative bars: a candidate must also reach this fraction of the top score.
// The bar tightens when even the top score is weak, so a cluster of mediocre
// scores does not produce a match.
const (
	semanticRelativeBar     = 0.8
	lexicalRelativeBar      = 0.7
	semanticWeakRelativeBar = 0.9
	lexicalWeakRelativeBar  = 0.85
	weakTopScore            = 0.5
	ambiguityBand           = 0.1
	maxAmbiguousCandidates  = 3
)

// Matcher scores questions against FAQ entries. The embedder is optional;
// without one the matcher goes straight to the lexical path.
type Matcher struct {
	embedder embedding.Provider
	logger   *zap.Logger
}

// NewMatcher creates a Matcher. embedder may be nil.
func NewMatcher(embedder embedding.Provider, logger *zap.Logger) *Matcher {
	return &Matcher{embedder: embedder, logger: logger}
}

// Match ranks entries against the question. Semantic matching is preferred;
// any failure there falls back to lexical scoring, and a total failure
// yields a nil Matched with whatever candidates survived.
func (m *Matcher) Match(ctx context.Context, question string, entries []Entry, cfg MatchConfig) *Result {
	if question == "" || len(entries) == 0 {
		return &Result{}
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}

	candidates, method := m.semanticCandidates(ctx, question, entries)
	if candidates == nil {
		candidates = m.lexicalCandidates(question, entries, cfg)
		method = "lexical"
	}

	candidates = rankAndFilter(candidates, cfg.Threshold, method)
	result := &Result{Candidates: candidates, Method: method}
	if len(candidates) > 0 {
		top := candidates[0].Entry
		result.Matched = &top
	}
	return result
}

// semanticCandidates embeds the question and every FAQ question in one call
// and scores pairs by cosine similarity. Returns nil when embedding is
// unavailable or fails, signalling the lexical fallback.
func (m *Matcher) semanticCandidates(ctx context.Context, question string, entries []Entry) ([]Candidate, string) {
	if m.embedder == nil {
		return nil, ""
	}

	texts := make([]string, 0, len(entries)+1)
	texts = append(texts, question)
	for _, e := range entries {
		texts = append(texts, e.Question)
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		if err != nil {
			m.logger.Warn("semantic matching unavailable, falling back to lexical", zap.Error(err))
		}
		return nil, ""
	}

	qvec := vectors[0]
	candidates := make([]Candidate, 0, len(entries))
	for i, e := range entries {
		score := embedding.CosineSimilarity(qvec, vectors[i+1])
		candidates = append(candidates, Candidate{
			Entry:      e,
			Confidence: clamp01(score),
			Method:     "semantic",
		})
	}
	return candidates, "semantic"
}

// lexicalCandidates scores each entry with the weighted metric blend.
func (m *Matcher) lexicalCandidates(question string, entries []Entry, cfg MatchConfig) []Candidate {
	lang := cfg.Language
	if lang == "" {
		lang = detectLanguage(question)
	}

	antonyms := cfg.AntonymPairs
	if antonyms == nil {
		antonyms = defaultAntonymPairs
	}
	clusters := cfg.TopicClusters
	if clusters == nil {
		clusters = defaultTopicClusters
	}

	normQ := normalize(question, lang)
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		normE := normalize(e.Question, lang)
		score := lexicalScore(normQ, normE)
		score -= negationPenalty(normQ, normE, antonyms)
		score += contextBonus(normQ, normE, clusters)
		candidates = append(candidates, Candidate{
			Entry:      e,
			Confidence: clamp01(score),
			Method:     "lexical",
		})
	}
	return candidates
}

// rankAndFilter sorts candidates, applies the absolute threshold, the
// relative bar against the top score, and the ambiguity-band cut.
func rankAndFilter(candidates []Candidate, threshold float64, method string) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	top := candidates[0].Confidence
	bar := relativeBar(top, method)
	minScore := threshold
	if bar > minScore {
		minScore = bar
	}

	kept := candidates[:0:0]
	for _, c := range candidates {
		if c.Confidence >= minScore {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	// Many near-identical scores mean ambiguity, not confidence.
	inBand := 0
	for _, c := range kept {
		if top-c.Confidence <= ambiguityBand {
			inBand++
		}
	}
	if inBand > maxAmbiguousCandidates && len(kept) > maxAmbiguousCandidates {
		kept = kept[:maxAmbiguousCandidates]
	}
	return kept
}

func relativeBar(top float64, method string) float64 {
	frac := lexicalRelativeBar
	weakFrac := lexicalWeakRelativeBar
	if method == "semantic" {
		frac = semanticRelativeBar
		weakFrac = semanticWeakRelativeBar
	}
	if top < weakTopScore {
		frac = weakFrac
	}
	return top * frac
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
