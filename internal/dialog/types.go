// Package dialog is the interview dialog engine: it sequences the
// generative judge and planner over one candidate utterance, degrades
// to the deterministic heuristic path on any failure, and always
// produces a usable reply.
package dialog

import (
	"github.com/valikhov/intervue/internal/ai"
	"github.com/valikhov/intervue/internal/scenario"
)

// Red-flag tags attached to a reply outcome.
const (
	FlagLowConfidence     = "low_confidence"
	FlagVeryShortResponse = "very_short_response"
	FlagMissingKeywords   = "missing_keywords"
	FlagJudgeError        = "judge_error"
	FlagPlannerError      = "planner_error"
	FlagSystemError       = "system_error"
)

// ReplyRequest is one turn of the interview: the current question
// node, the transcribed answer and the caller-owned score accumulator.
// The engine holds no session state; the caller resubmits Scores every
// turn and applies the returned update itself.
type ReplyRequest struct {
	Node         scenario.Node      `json:"node"`
	Transcript   string             `json:"transcript"`
	Scores       map[string]float64 `json:"scores"`
	Context      map[string]any     `json:"context,omitempty"`
	RoleProfile  string             `json:"role_profile,omitempty"`
	BlockWeights map[string]float64 `json:"block_weights,omitempty"`
}

// TurnContext carries the caller-provided correlation ids from the
// free-form request context.
type TurnContext struct {
	SessionID string `mapstructure:"session_id"`
	TurnID    string `mapstructure:"turn_id"`
}

// ScoringUpdate tells the caller how to advance its accumulator for
// one block.
type ScoringUpdate struct {
	Block string  `json:"block"`
	Delta float64 `json:"delta"`
	Score float64 `json:"score"`
}

// ReplyOutcome is the unit returned to the caller; the only entity
// that crosses the engine boundary.
type ReplyOutcome struct {
	Reply         string        `json:"reply"`
	NextNodeID    string        `json:"next_node_id,omitempty"`
	ScoringUpdate ScoringUpdate `json:"scoring_update"`
	RedFlags      []string      `json:"red_flags"`
	DeltaScore    float64       `json:"delta_score"`
	Confidence    float64       `json:"confidence"`
	RoleProfile   string        `json:"role_profile,omitempty"`
}

// judgePayload is the wire shape of a judge result inside a stream.
type judgePayload struct {
	Score           float64  `json:"score"`
	Evidence        []string `json:"evidence"`
	Confidence      float64  `json:"confidence"`
	MissingCriteria []string `json:"missing_criteria"`
}

func toJudgePayload(r *ai.JudgeResult) judgePayload {
	return judgePayload{
		Score:           r.Score,
		Evidence:        r.Evidence,
		Confidence:      r.Confidence,
		MissingCriteria: r.MissingCriteria,
	}
}

// plannerPayload is the wire shape of a planner result inside a stream.
type plannerPayload struct {
	Reply        string `json:"reply"`
	NextNodeID   string `json:"next_node_id,omitempty"`
	FollowUpType string `json:"follow_up_type"`
	Priority     string `json:"priority"`
}

func toPlannerPayload(r *ai.PlannerResult) plannerPayload {
	return plannerPayload{
		Reply:        r.Reply,
		NextNodeID:   r.NextNodeID,
		FollowUpType: string(r.FollowUpType),
		Priority:     string(r.Priority),
	}
}
