package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"github.com/valikhov/intervue/internal/ai"
	"github.com/valikhov/intervue/internal/logger"
	"github.com/valikhov/intervue/internal/scenario"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

//go:embed planner_prompt.md
var plannerPromptTemplate string

var plannerSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"reply":          {Type: genai.TypeString},
		"next_node_id":   {Type: genai.TypeString},
		"follow_up_type": {Type: genai.TypeString, Enum: []string{"clarification", "completion"}},
		"priority":       {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
	},
	Required: []string{"reply", "next_node_id", "follow_up_type", "priority"},
}

// Planner turns a judge result into the next conversational action
// through the Gemini backend.
type Planner struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewPlanner(generator jsonGenerator, log *zap.Logger, maxLogLength int) *Planner {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Planner{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Plan implements ai.Planner.
func (p *Planner) Plan(ctx context.Context, judged *ai.JudgeResult, node *scenario.Node, profile scenario.RoleProfile) (*ai.PlannerResult, error) {
	if judged == nil {
		return nil, ai.Unavailable(ai.StagePlanner, errors.New("judge result is required"))
	}
	if node == nil {
		return nil, ai.Unavailable(ai.StagePlanner, errors.New("node is required"))
	}

	system := strings.ReplaceAll(plannerPromptTemplate, "{{ROLE_PROFILE}}", string(profile))

	missing := "none"
	if len(judged.MissingCriteria) > 0 {
		missing = strings.Join(judged.MissingCriteria, ", ")
	}

	user := fmt.Sprintf(
		"Score: %.2f\nMissing criteria: %s\nCurrent block: %s\nPass-path node: %s\nFail-path node: %s\n\nDecide the follow-up and return JSON.",
		judged.Score, missing, node.Category, orNone(node.NextIfPass), orNone(node.NextIfFail),
	)

	p.logger.Debug("planner request",
		zap.String(logger.FieldStage, string(ai.StagePlanner)),
		zap.String("prompt_preview", logger.TruncateForLog(user, p.maxLogLen)),
	)

	raw, err := p.generator.GenerateJSON(ctx, system, user, plannerSchema)
	if err != nil {
		return nil, ai.Unavailable(ai.StagePlanner, err)
	}

	p.logger.Debug("planner response",
		zap.String(logger.FieldStage, string(ai.StagePlanner)),
		zap.String("response_preview", logger.TruncateForLog(raw, p.maxLogLen)),
	)

	result, err := parsePlannerResponse(raw, node)
	if err != nil {
		return nil, ai.Malformed(ai.StagePlanner, err)
	}

	return result, nil
}

func parsePlannerResponse(raw string, node *scenario.Node) (*ai.PlannerResult, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	reply := coerceString(data["reply"])
	if reply == "" {
		return nil, errors.New("planner reply is empty")
	}

	result := &ai.PlannerResult{
		Reply:        reply,
		NextNodeID:   normalizeNextNode(coerceString(data["next_node_id"]), node),
		FollowUpType: normalizeFollowUp(coerceString(data["follow_up_type"])),
		Priority:     normalizePriority(coerceString(data["priority"])),
		Raw:          raw,
	}

	return result, nil
}

// normalizeNextNode keeps only node ids the current node can actually
// reach; anything else (including the literal "none") means terminal.
func normalizeNextNode(id string, node *scenario.Node) string {
	id = strings.TrimSpace(id)
	if id == node.NextIfPass || id == node.NextIfFail {
		return id
	}
	return ""
}

func normalizeFollowUp(raw string) ai.FollowUpType {
	switch ai.FollowUpType(strings.ToLower(raw)) {
	case ai.FollowUpCompletion:
		return ai.FollowUpCompletion
	default:
		return ai.FollowUpClarification
	}
}

func normalizePriority(raw string) ai.Priority {
	switch ai.Priority(strings.ToLower(raw)) {
	case ai.PriorityHigh:
		return ai.PriorityHigh
	case ai.PriorityLow:
		return ai.PriorityLow
	default:
		return ai.PriorityMedium
	}
}

func orNone(id string) string {
	if strings.TrimSpace(id) == "" {
		return "none"
	}
	return id
}
