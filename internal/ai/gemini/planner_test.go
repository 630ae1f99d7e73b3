package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/valikhov/intervue/internal/ai"
	"github.com/valikhov/intervue/internal/scenario"
	"go.uber.org/zap"
)

func plannerNode() *scenario.Node {
	return &scenario.Node{
		ID:         "q1",
		Category:   "fraud_detection",
		NextIfFail: "q1_drill",
		NextIfPass: "q2",
	}
}

func TestPlannerParsesStructuredOutput(t *testing.T) {
	gen := &scriptedGenerator{
		output: `{"reply": "Which detection rules did you tune?", "next_node_id": "q1_drill", "follow_up_type": "clarification", "priority": "high"}`,
	}
	planner := NewPlanner(gen, zap.NewNop(), 0)

	judged := &ai.JudgeResult{Score: 0.4, MissingCriteria: []string{"rules"}}
	result, err := planner.Plan(context.Background(), judged, plannerNode(), scenario.RoleBAAntiFraud)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Reply != "Which detection rules did you tune?" {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if result.NextNodeID != "q1_drill" {
		t.Fatalf("unexpected next node: %q", result.NextNodeID)
	}
	if result.FollowUpType != ai.FollowUpClarification {
		t.Fatalf("unexpected follow-up type: %v", result.FollowUpType)
	}
	if result.Priority != ai.PriorityHigh {
		t.Fatalf("unexpected priority: %v", result.Priority)
	}
}

func TestPlannerRejectsUnreachableNextNode(t *testing.T) {
	gen := &scriptedGenerator{
		output: `{"reply": "Moving on.", "next_node_id": "made_up_node", "follow_up_type": "completion", "priority": "medium"}`,
	}
	planner := NewPlanner(gen, zap.NewNop(), 0)

	result, err := planner.Plan(context.Background(), &ai.JudgeResult{Score: 0.9}, plannerNode(), scenario.RoleGeneric)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.NextNodeID != "" {
		t.Fatalf("unreachable node id must be dropped, got %q", result.NextNodeID)
	}
}

func TestPlannerNormalizesEnums(t *testing.T) {
	gen := &scriptedGenerator{
		output: `{"reply": "Ok.", "next_node_id": "q2", "follow_up_type": "WRAP_UP", "priority": "URGENT"}`,
	}
	planner := NewPlanner(gen, zap.NewNop(), 0)

	result, err := planner.Plan(context.Background(), &ai.JudgeResult{Score: 0.9}, plannerNode(), scenario.RoleGeneric)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.FollowUpType != ai.FollowUpClarification {
		t.Fatalf("unknown follow-up type must default to clarification, got %v", result.FollowUpType)
	}
	if result.Priority != ai.PriorityMedium {
		t.Fatalf("unknown priority must default to medium, got %v", result.Priority)
	}
}

func TestPlannerEmptyReplyIsMalformed(t *testing.T) {
	gen := &scriptedGenerator{
		output: `{"reply": "", "next_node_id": "q2", "follow_up_type": "completion", "priority": "low"}`,
	}
	planner := NewPlanner(gen, zap.NewNop(), 0)

	_, err := planner.Plan(context.Background(), &ai.JudgeResult{Score: 0.9}, plannerNode(), scenario.RoleGeneric)

	var stageErr *ai.Error
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if stageErr.Stage != ai.StagePlanner || stageErr.Kind != ai.KindMalformed {
		t.Fatalf("unexpected classification: %+v", stageErr)
	}
}

func TestPlannerTransportFailureIsUnavailable(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("timeout")}
	planner := NewPlanner(gen, zap.NewNop(), 0)

	_, err := planner.Plan(context.Background(), &ai.JudgeResult{Score: 0.9}, plannerNode(), scenario.RoleGeneric)

	var stageErr *ai.Error
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if stageErr.Kind != ai.KindUnavailable {
		t.Fatalf("expected unavailable kind, got %v", stageErr.Kind)
	}
}
