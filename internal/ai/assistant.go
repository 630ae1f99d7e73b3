// Package ai defines the contracts between the dialog orchestrator and
// the generative evaluation stages. Implementations live in
// subpackages (gemini); the orchestrator depends only on these types.
package ai

import (
	"context"

	"github.com/valikhov/intervue/internal/scenario"
)

// JudgeResult is the outcome of scoring one transcript against a
// node's success criteria. Created fresh per turn, never persisted.
type JudgeResult struct {
	Score           float64
	Evidence        []string
	Confidence      float64
	MissingCriteria []string
	Raw             string
}

// FollowUpType classifies the planner's proposed reply.
type FollowUpType string

const (
	FollowUpClarification FollowUpType = "clarification"
	FollowUpCompletion    FollowUpType = "completion"
)

// Priority of the planner's proposed follow-up.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PlannerResult is the planner's proposed next conversational action.
type PlannerResult struct {
	Reply        string
	NextNodeID   string
	FollowUpType FollowUpType
	Priority     Priority
	Raw          string
}

// Judge scores a candidate transcript against a node's success
// criteria. Any transport or parse failure is reported as *Error so
// callers can degrade instead of surfacing it to the participant.
type Judge interface {
	Judge(ctx context.Context, transcript string, criteria []string, profile scenario.RoleProfile) (*JudgeResult, error)
}

// Planner turns a judge result into a short reply and a next-node
// proposal. Same failure contract as Judge.
type Planner interface {
	Plan(ctx context.Context, judged *JudgeResult, node *scenario.Node, profile scenario.RoleProfile) (*PlannerResult, error)
}
