// Package scoring implements the BARS (Behaviorally Anchored Rating
// Scale) arithmetic used to aggregate per-question answers into block
// and overall competency scores. All functions are pure: no I/O, no
// state, identical inputs always produce identical outputs.
package scoring

import "math"

// Behavioral anchors of the 4-point scale.
const (
	AnchorNone    = 0.0
	AnchorBelow   = 0.3
	AnchorMeets   = 0.7
	AnchorExceeds = 1.0
)

// Anchors lists the BARS anchors in ascending order. SnapToAnchor
// resolves ties toward the first minimal-distance entry of this slice.
var Anchors = []float64{AnchorNone, AnchorBelow, AnchorMeets, AnchorExceeds}

// Level descriptions keyed by anchor.
var anchorLevels = map[float64]string{
	AnchorNone:    "No evidence / Poor performance",
	AnchorBelow:   "Below expectations / Limited evidence",
	AnchorMeets:   "Meets expectations / Good evidence",
	AnchorExceeds: "Exceeds expectations / Excellent evidence",
}

// QAnswer is a single scored interview answer. Score and Weight are
// both expected in [0,1]; Block names the competency category the
// question belongs to.
type QAnswer struct {
	QuestionID string  `json:"question_id"`
	Block      string  `json:"block"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
}

// Clamp limits a score to the valid [0,1] range.
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func round4(score float64) float64 {
	return math.Round(score*10000) / 10000
}

// SnapToAnchor snaps a score to the nearest BARS anchor.
func SnapToAnchor(score float64) float64 {
	best := Anchors[0]
	bestDist := math.Abs(score - best)
	for _, anchor := range Anchors[1:] {
		if d := math.Abs(score - anchor); d < bestDist {
			best = anchor
			bestDist = d
		}
	}
	return best
}

// ScoreBlock returns the weighted mean score of the answers belonging
// to the given block. An empty block or a zero total weight yields 0.
func ScoreBlock(answers []QAnswer, block string) float64 {
	var weightedSum, totalWeight float64
	matched := false
	for _, a := range answers {
		if a.Block != block {
			continue
		}
		matched = true
		weightedSum += a.Score * a.Weight
		totalWeight += a.Weight
	}

	if !matched || totalWeight == 0 {
		return 0
	}

	return round4(Clamp(weightedSum / totalWeight))
}

// ScoreOverall aggregates block scores into one weighted score. Blocks
// missing from blockScores count as 0.
func ScoreOverall(blockScores, blockWeights map[string]float64) float64 {
	if len(blockScores) == 0 || len(blockWeights) == 0 {
		return 0
	}

	var weightedSum, totalWeight float64
	for block, weight := range blockWeights {
		weightedSum += blockScores[block] * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0
	}

	return round4(Clamp(weightedSum / totalWeight))
}

// CalculateMatchScore compares candidate block scores against per-block
// job requirements. Each block contributes min(candidate/required, 1)
// weighted by blockWeights; a zero requirement is satisfied by any
// positive candidate score.
func CalculateMatchScore(candidateScores, jobRequirements, blockWeights map[string]float64) float64 {
	if len(candidateScores) == 0 || len(jobRequirements) == 0 || len(blockWeights) == 0 {
		return 0
	}

	var matchSum, totalWeight float64
	for block, weight := range blockWeights {
		candidate := candidateScores[block]
		required := jobRequirements[block]

		var ratio float64
		switch {
		case required > 0:
			ratio = math.Min(candidate/required, 1.0)
		case candidate > 0:
			ratio = 1.0
		}

		matchSum += ratio * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0
	}

	return round4(Clamp(matchSum / totalWeight))
}

// BarsLevel maps a continuous score to its qualitative level. The
// cutoffs are midpoints between adjacent anchors, not the anchors
// themselves.
func BarsLevel(score float64) string {
	switch {
	case score >= 0.85:
		return anchorLevels[AnchorExceeds]
	case score >= 0.55:
		return anchorLevels[AnchorMeets]
	case score >= 0.15:
		return anchorLevels[AnchorBelow]
	default:
		return anchorLevels[AnchorNone]
	}
}

// BlockAnalysis describes one block inside a performance analysis.
type BlockAnalysis struct {
	Score  float64 `json:"score"`
	Level  string  `json:"level"`
	Weight float64 `json:"weight"`
}

// Analysis is the full outcome of AnalyzePerformance.
type Analysis struct {
	BlockScores   map[string]float64       `json:"block_scores"`
	OverallScore  float64                  `json:"overall_score"`
	OverallLevel  string                   `json:"overall_level"`
	BlockAnalysis map[string]BlockAnalysis `json:"block_analysis"`
	Strengths     []string                 `json:"strengths"`
	Weaknesses    []string                 `json:"weaknesses"`
}

// AnalyzePerformance computes block scores, the overall score and a
// strengths/weaknesses split (>=0.7 strength, <0.3 weakness).
func AnalyzePerformance(answers []QAnswer, blockWeights map[string]float64) Analysis {
	blocks := make(map[string]struct{})
	for _, a := range answers {
		blocks[a.Block] = struct{}{}
	}

	blockScores := make(map[string]float64, len(blocks))
	for block := range blocks {
		blockScores[block] = ScoreBlock(answers, block)
	}

	overall := ScoreOverall(blockScores, blockWeights)

	analysis := Analysis{
		BlockScores:   blockScores,
		OverallScore:  overall,
		OverallLevel:  BarsLevel(overall),
		BlockAnalysis: make(map[string]BlockAnalysis, len(blockScores)),
		Strengths:     []string{},
		Weaknesses:    []string{},
	}

	for block, score := range blockScores {
		analysis.BlockAnalysis[block] = BlockAnalysis{
			Score:  score,
			Level:  BarsLevel(score),
			Weight: blockWeights[block],
		}
		if score >= AnchorMeets {
			analysis.Strengths = append(analysis.Strengths, block)
		}
		if score < AnchorBelow {
			analysis.Weaknesses = append(analysis.Weaknesses, block)
		}
	}

	return analysis
}
