package dialog

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/valikhov/intervue/internal/ai"
	"github.com/valikhov/intervue/internal/heuristic"
	"github.com/valikhov/intervue/internal/scenario"
)

type fakeJudge struct {
	result *ai.JudgeResult
	err    error
	panics bool
	calls  int
}

func (f *fakeJudge) Judge(_ context.Context, _ string, _ []string, _ scenario.RoleProfile) (*ai.JudgeResult, error) {
	f.calls++
	if f.panics {
		panic("judge blew up")
	}
	return f.result, f.err
}

type fakePlanner struct {
	result *ai.PlannerResult
	err    error
	calls  int
}

func (f *fakePlanner) Plan(_ context.Context, _ *ai.JudgeResult, _ *scenario.Node, _ scenario.RoleProfile) (*ai.PlannerResult, error) {
	f.calls++
	return f.result, f.err
}

func testNode() scenario.Node {
	return scenario.Node{
		ID:              "fraud_l2_process",
		Category:        "fraud",
		Order:           2,
		Question:        "Walk me through a fraud investigation you ran.",
		Weight:          0.4,
		SuccessCriteria: []string{"rules", "metrics", "cases"},
		NextIfFail:      "fraud_l1_intro",
		NextIfPass:      "fraud_l3_advanced",
	}
}

func testOrchestrator(t *testing.T, judge ai.Judge, planner ai.Planner) *Orchestrator {
	t.Helper()

	phrases, err := LoadPhraseBank("", nil)
	if err != nil {
		t.Fatalf("LoadPhraseBank: %v", err)
	}
	store := scenario.NewStore("", nil)
	return New(judge, planner, store, phrases, nil, nil)
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func TestReplyHeuristicBranching(t *testing.T) {
	o := testOrchestrator(t, nil, nil)

	node := testNode()
	transcript := "we tracked the metrics on every alert queue daily"

	outcome := o.Reply(context.Background(), &ReplyRequest{
		Node:        node,
		Transcript:  transcript,
		Scores:      map[string]float64{"fraud": 0.5},
		RoleProfile: "ba_anti_fraud",
	})

	// One of three criteria matched, so the partial score applies and
	// the anti-fraud cutoff of 0.75 sends the turn to the fail edge.
	if outcome.ScoringUpdate.Score != 0.7 {
		t.Fatalf("score = %v, want 0.7", outcome.ScoringUpdate.Score)
	}
	if outcome.NextNodeID != node.NextIfFail {
		t.Fatalf("next node = %q, want fail edge %q", outcome.NextNodeID, node.NextIfFail)
	}
	if outcome.ScoringUpdate.Block != "fraud" {
		t.Fatalf("block = %q, want fraud", outcome.ScoringUpdate.Block)
	}

	wantDelta := 0.7 - 0.5
	if outcome.DeltaScore != wantDelta || outcome.ScoringUpdate.Delta != wantDelta {
		t.Fatalf("delta = %v / %v, want %v", outcome.DeltaScore, outcome.ScoringUpdate.Delta, wantDelta)
	}

	wantConfidence := heuristic.Confidence(transcript, node.SuccessCriteria, 0.7)
	if outcome.Confidence != wantConfidence {
		t.Fatalf("confidence = %v, want %v", outcome.Confidence, wantConfidence)
	}
	if outcome.RoleProfile != "ba_anti_fraud" {
		t.Fatalf("role profile = %q", outcome.RoleProfile)
	}
	if outcome.Reply == "" {
		t.Fatal("reply is empty")
	}
}

func TestReplyJudgeFailureMatchesHeuristicPath(t *testing.T) {
	node := testNode()
	req := func() *ReplyRequest {
		return &ReplyRequest{
			Node:       node,
			Transcript: "honestly i have no real answer for this question",
			Scores:     map[string]float64{},
		}
	}

	plain := testOrchestrator(t, nil, nil)
	degraded := testOrchestrator(t, &fakeJudge{err: ai.Unavailable(ai.StageJudge, errors.New("boom"))}, &fakePlanner{})

	want := plain.Reply(context.Background(), req())
	got := degraded.Reply(context.Background(), req())

	if !hasFlag(got.RedFlags, FlagJudgeError) {
		t.Fatalf("red flags %v missing %s", got.RedFlags, FlagJudgeError)
	}

	// Apart from the judge_error tag, the degraded turn must be
	// indistinguishable from one that never had a judge.
	got.RedFlags = want.RedFlags
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("degraded outcome %+v differs from heuristic outcome %+v", got, want)
	}
}

func TestReplyPlannerFailureKeepsJudgeScore(t *testing.T) {
	judge := &fakeJudge{result: &ai.JudgeResult{
		Score:           0.9,
		Confidence:      0.8,
		Evidence:        []string{"described the rule pipeline"},
		MissingCriteria: []string{"cases"},
	}}
	planner := &fakePlanner{err: ai.Malformed(ai.StagePlanner, errors.New("bad json"))}

	o := testOrchestrator(t, judge, planner)

	outcome := o.Reply(context.Background(), &ReplyRequest{
		Node:        testNode(),
		Transcript:  "we built the rules engine ourselves and tuned it weekly",
		Scores:      map[string]float64{"fraud": 0.2},
		RoleProfile: "ba_anti_fraud",
	})

	if outcome.ScoringUpdate.Score != 0.9 {
		t.Fatalf("score = %v, want judge's 0.9", outcome.ScoringUpdate.Score)
	}
	if outcome.Confidence != 0.8 {
		t.Fatalf("confidence = %v, want judge's 0.8", outcome.Confidence)
	}
	if !hasFlag(outcome.RedFlags, FlagPlannerError) {
		t.Fatalf("red flags %v missing %s", outcome.RedFlags, FlagPlannerError)
	}
	if !hasFlag(outcome.RedFlags, FlagMissingKeywords) {
		t.Fatalf("red flags %v missing %s", outcome.RedFlags, FlagMissingKeywords)
	}

	// 0.9 clears the 0.75 cutoff, so branching goes to the pass edge.
	if outcome.NextNodeID != "fraud_l3_advanced" {
		t.Fatalf("next node = %q, want pass edge", outcome.NextNodeID)
	}
}

func TestReplyFullPipelineSuccess(t *testing.T) {
	judge := &fakeJudge{result: &ai.JudgeResult{
		Score:           1.0,
		Confidence:      0.9,
		MissingCriteria: nil,
	}}
	planner := &fakePlanner{result: &ai.PlannerResult{
		Reply:        "Great, tell me about the hardest case you closed.",
		NextNodeID:   "fraud_l3_advanced",
		FollowUpType: ai.FollowUpCompletion,
		Priority:     ai.PriorityLow,
	}}

	o := testOrchestrator(t, judge, planner)

	outcome := o.Reply(context.Background(), &ReplyRequest{
		Node:       testNode(),
		Transcript: "we combined rule hits with manual review metrics across cases",
		Scores:     map[string]float64{},
	})

	if outcome.Reply != planner.result.Reply {
		t.Fatalf("reply = %q, want planner's", outcome.Reply)
	}
	if outcome.NextNodeID != "fraud_l3_advanced" {
		t.Fatalf("next node = %q", outcome.NextNodeID)
	}
	if outcome.ScoringUpdate.Score != 1.0 || outcome.Confidence != 0.9 {
		t.Fatalf("score/confidence = %v/%v", outcome.ScoringUpdate.Score, outcome.Confidence)
	}
	if len(outcome.RedFlags) != 0 {
		t.Fatalf("unexpected red flags %v", outcome.RedFlags)
	}
	if judge.calls != 1 || planner.calls != 1 {
		t.Fatalf("judge/planner calls = %d/%d", judge.calls, planner.calls)
	}
}

func TestReplyPanicDegradesToSystemError(t *testing.T) {
	o := testOrchestrator(t, &fakeJudge{panics: true}, &fakePlanner{})

	outcome := o.Reply(context.Background(), &ReplyRequest{
		Node:       testNode(),
		Transcript: "a perfectly ordinary answer about fraud metrics",
		Scores:     map[string]float64{},
	})

	if outcome == nil {
		t.Fatal("outcome is nil after panic")
	}
	if !hasFlag(outcome.RedFlags, FlagSystemError) {
		t.Fatalf("red flags %v missing %s", outcome.RedFlags, FlagSystemError)
	}
	if outcome.Reply == "" {
		t.Fatal("reply is empty after panic recovery")
	}
}

func TestRedFlagDerivation(t *testing.T) {
	o := testOrchestrator(t, nil, nil)

	cases := []struct {
		name       string
		transcript string
		want       []string
		absent     []string
	}{
		{
			name:       "very short answer",
			transcript: "yes",
			want:       []string{FlagLowConfidence, FlagVeryShortResponse},
		},
		{
			name:       "uncertainty marker",
			transcript: "I'm really not sure how that process worked back then",
			want:       []string{FlagLowConfidence},
			absent:     []string{FlagVeryShortResponse},
		},
		{
			name:       "confident full answer",
			transcript: "we reviewed rules, tracked metrics and escalated cases daily",
			absent:     []string{FlagLowConfidence, FlagVeryShortResponse, FlagMissingKeywords},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := o.Reply(context.Background(), &ReplyRequest{
				Node:       testNode(),
				Transcript: tc.transcript,
				Scores:     map[string]float64{},
			})
			for _, flag := range tc.want {
				if !hasFlag(outcome.RedFlags, flag) {
					t.Errorf("flags %v missing %s", outcome.RedFlags, flag)
				}
			}
			for _, flag := range tc.absent {
				if hasFlag(outcome.RedFlags, flag) {
					t.Errorf("flags %v unexpectedly contain %s", outcome.RedFlags, flag)
				}
			}
		})
	}
}

func TestReplyNeverReportsMissingKeywordsOnHeuristicPath(t *testing.T) {
	o := testOrchestrator(t, nil, nil)

	// The heuristic evaluator knows which criteria were absent, but the
	// tag is reserved for turns where a real judge produced the set.
	outcome := o.Reply(context.Background(), &ReplyRequest{
		Node:       testNode(),
		Transcript: "a long answer that matches none of the expected topics at all",
		Scores:     map[string]float64{},
	})

	if hasFlag(outcome.RedFlags, FlagMissingKeywords) {
		t.Fatalf("flags %v must not carry %s without a judge", outcome.RedFlags, FlagMissingKeywords)
	}
}

func TestReplyUnknownProfileDefaultsToGeneric(t *testing.T) {
	o := testOrchestrator(t, nil, nil)

	outcome := o.Reply(context.Background(), &ReplyRequest{
		Node:        testNode(),
		Transcript:  "we tracked the metrics on every alert queue daily",
		Scores:      map[string]float64{},
		RoleProfile: "astronaut",
	})

	if outcome.RoleProfile != string(scenario.RoleGeneric) {
		t.Fatalf("role profile = %q, want generic", outcome.RoleProfile)
	}
	// The generic profile has no cutoff of its own, so the generated
	// scenario's policy decides and 0.7 passes.
	if outcome.NextNodeID != testNode().NextIfPass {
		t.Fatalf("next node = %q, want pass edge", outcome.NextNodeID)
	}
}
