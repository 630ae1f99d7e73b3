// Package heuristic is the guaranteed-available floor of the scoring
// pipeline: a deterministic keyword evaluator with no network and no
// parsing, so it can never fail.
package heuristic

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/valikhov/intervue/internal/ai"
)

const (
	shortTranscriptRunes = 10
	longTranscriptRunes  = 200

	// Confidence attached to synthesized judge results. The keyword
	// match says nothing about answer quality beyond criterion
	// presence, so the synthesized result is deliberately mid-scale.
	synthesizedConfidence = 0.5
)

// Score rates a transcript against success criteria on the discrete
// scale of the behavioral anchors: no criterion mentioned scores 0.3,
// a partial match 0.7, a full match 1.0. Matching is case-insensitive
// substring containment of each criterion phrase.
func Score(transcript string, criteria []string) float64 {
	hits := matchCount(transcript, criteria)
	switch {
	case hits == 0:
		return 0.3
	case hits < len(criteria):
		return 0.7
	default:
		return 1.0
	}
}

// Confidence estimates how much to trust a heuristic score. It starts
// from the score itself, discounts very short answers, slightly boosts
// long ones and scales with keyword density, clamped to [0,1].
func Confidence(transcript string, criteria []string, score float64) float64 {
	confidence := score

	length := utf8.RuneCountInString(strings.TrimSpace(transcript))
	if length < shortTranscriptRunes {
		confidence *= 0.5
	} else if length > longTranscriptRunes {
		confidence *= 1.1
	}

	density := 0.0
	if len(criteria) > 0 {
		density = float64(matchCount(transcript, criteria)) / float64(len(criteria))
	}
	confidence *= 0.5 + 0.5*density

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// Judge synthesizes a judge result from the keyword evaluator so the
// fallback path can flow through the same downstream shape as the
// generative one.
func Judge(transcript string, criteria []string) *ai.JudgeResult {
	hits := matchCount(transcript, criteria)
	return &ai.JudgeResult{
		Score:           Score(transcript, criteria),
		Evidence:        []string{fmt.Sprintf("matched %d of %d success criteria", hits, len(criteria))},
		Confidence:      synthesizedConfidence,
		MissingCriteria: missing(transcript, criteria),
	}
}

func matchCount(transcript string, criteria []string) int {
	t := strings.ToLower(transcript)
	hits := 0
	for _, c := range criteria {
		if strings.Contains(t, strings.ToLower(c)) {
			hits++
		}
	}
	return hits
}

func missing(transcript string, criteria []string) []string {
	t := strings.ToLower(transcript)
	var absent []string
	for _, c := range criteria {
		if !strings.Contains(t, strings.ToLower(c)) {
			absent = append(absent, c)
		}
	}
	return absent
}
