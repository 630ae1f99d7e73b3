package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/valikhov/intervue/internal/ai"
	"github.com/valikhov/intervue/internal/logger"
	"github.com/valikhov/intervue/internal/scenario"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

//go:embed judge_prompt.md
var judgePromptTemplate string

const defaultMaxLogLength = 200

var judgeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":            {Type: genai.TypeNumber},
		"evidence":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"confidence":       {Type: genai.TypeNumber},
		"missing_criteria": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"score", "evidence", "confidence", "missing_criteria"},
}

// jsonGenerator is what Judge and Planner need from the Generator.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, system, user string, schema *genai.Schema) (string, error)
}

// Judge scores transcripts against node success criteria through the
// Gemini backend. Every failure is reported as a recoverable stage
// error; nothing from here ever reaches the interview participant.
type Judge struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewJudge(generator jsonGenerator, log *zap.Logger, maxLogLength int) *Judge {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Judge{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Judge implements ai.Judge.
func (j *Judge) Judge(ctx context.Context, transcript string, criteria []string, profile scenario.RoleProfile) (*ai.JudgeResult, error) {
	system := strings.ReplaceAll(judgePromptTemplate, "{{ROLE_PROFILE}}", string(profile))
	system = strings.ReplaceAll(system, "{{CRITERIA}}", strings.Join(criteria, ", "))

	user := fmt.Sprintf("Candidate's answer: %q\n\nScore it against the criteria and return JSON.", transcript)

	j.logger.Debug("judge request",
		zap.String(logger.FieldStage, string(ai.StageJudge)),
		zap.Int("prompt_length", utf8.RuneCountInString(user)),
		zap.String("prompt_preview", logger.TruncateForLog(user, j.maxLogLen)),
	)

	raw, err := j.generator.GenerateJSON(ctx, system, user, judgeSchema)
	if err != nil {
		return nil, ai.Unavailable(ai.StageJudge, err)
	}

	j.logger.Debug("judge response",
		zap.String(logger.FieldStage, string(ai.StageJudge)),
		zap.String("response_preview", logger.TruncateForLog(raw, j.maxLogLen)),
	)

	result, err := parseJudgeResponse(raw, criteria)
	if err != nil {
		return nil, ai.Malformed(ai.StageJudge, err)
	}

	return result, nil
}

func parseJudgeResponse(raw string, criteria []string) (*ai.JudgeResult, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	result := &ai.JudgeResult{
		Score:           clampUnit(coerceFloat(data["score"]), 0),
		Evidence:        coerceStrings(data["evidence"]),
		Confidence:      clampUnit(coerceFloat(data["confidence"]), 0.5),
		MissingCriteria: intersect(coerceStrings(data["missing_criteria"]), criteria),
		Raw:             raw,
	}

	return result, nil
}

// intersect keeps only reported criteria that actually belong to the
// node's success criteria, preserving the node's phrasing.
func intersect(reported, criteria []string) []string {
	if len(reported) == 0 {
		return nil
	}

	known := make(map[string]string, len(criteria))
	for _, c := range criteria {
		known[strings.ToLower(strings.TrimSpace(c))] = c
	}

	var kept []string
	for _, r := range reported {
		if original, ok := known[strings.ToLower(strings.TrimSpace(r))]; ok {
			kept = append(kept, original)
		}
	}
	return kept
}
