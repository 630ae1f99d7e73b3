package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"github.com/valikhov/intervue/internal/ai"
	"github.com/valikhov/intervue/internal/heuristic"
	"github.com/valikhov/intervue/internal/logger"
	"github.com/valikhov/intervue/internal/metrics"
	"github.com/valikhov/intervue/internal/scenario"
	"go.uber.org/zap"
)

const (
	veryShortRunes      = 10
	lowConfidenceCutoff = 0.4

	metricsService = "dm"
)

// Orchestrator drives one interview turn through the judge-planner
// pipeline with layered degradation: judge failure falls back to the
// heuristic evaluator, planner failure keeps the judge's score, and
// anything unexpected lands on the heuristic path too. It always
// returns a usable outcome.
//
// The turn moves through START, JUDGING, PLANNING and DONE, with
// FALLBACK reachable from every state. Invocations are independent
// and stateless across turns; all shared inputs (scenario cache,
// phrase bank) are read-only.
type Orchestrator struct {
	judge     ai.Judge
	planner   ai.Planner
	scenarios *scenario.Store
	phrases   *PhraseBank
	metrics   *metrics.Client
	logger    *zap.Logger
}

// New assembles an orchestrator. judge and planner may be nil, in
// which case every turn takes the heuristic path directly. metrics
// may be nil to disable latency events.
func New(judge ai.Judge, planner ai.Planner, scenarios *scenario.Store, phrases *PhraseBank, metricsClient *metrics.Client, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}

	return &Orchestrator{
		judge:     judge,
		planner:   planner,
		scenarios: scenarios,
		phrases:   phrases,
		metrics:   metricsClient,
		logger:    log,
	}
}

// Reply runs one synchronous turn. It never returns an error: every
// failure mode degrades to a canned reply with the appropriate red
// flags.
func (o *Orchestrator) Reply(ctx context.Context, req *ReplyRequest) *ReplyOutcome {
	start := time.Now()
	outcome := o.run(ctx, req, nil)
	o.recordLatency(req, elapsedMS(start))
	return outcome
}

// run is the turn state machine shared by Reply and Stream. obs is nil
// for the synchronous variant.
func (o *Orchestrator) run(ctx context.Context, req *ReplyRequest, obs *streamObserver) (outcome *ReplyOutcome) {
	profile := scenario.ResolveProfile(req.RoleProfile)
	threshold := scenario.ResolveThreshold(profile, o.scenarios.Load(req.Node.Category))

	turnLogger := logger.WithTurnFields(o.logger, string(profile), req.Node.ID)

	// Whatever breaks below, the participant still gets an answer.
	defer func() {
		if r := recover(); r != nil {
			turnLogger.Error("dialog turn recovered from panic", zap.Any("panic", r))
			obs.fallback("internal error")
			outcome = o.fallback(req, profile, threshold, nil, FlagSystemError)
		}
	}()

	// START: backchannel goes out before any scoring, streaming only.
	obs.backchannel(o.phrases.Backchannel(profile))

	if o.judge == nil || o.planner == nil {
		return o.fallback(req, profile, threshold, nil)
	}

	// JUDGING
	judged, err := o.judge.Judge(ctx, req.Transcript, req.Node.SuccessCriteria, profile)
	if err != nil {
		turnLogger.Warn("judge stage failed, degrading to heuristic",
			zap.String(logger.FieldStage, string(ai.StageJudge)),
			zap.Error(err),
		)
		obs.fallback("judge failed")
		return o.fallback(req, profile, threshold, nil, FlagJudgeError)
	}
	obs.judge(judged)

	// PLANNING: a planner failure keeps the judge's work.
	planned, err := o.planner.Plan(ctx, judged, &req.Node, profile)
	if err != nil {
		turnLogger.Warn("planner stage failed, keeping judge score",
			zap.String(logger.FieldStage, string(ai.StagePlanner)),
			zap.Error(err),
		)
		obs.fallback("planner failed")
		return o.fallback(req, profile, threshold, judged, FlagPlannerError)
	}
	obs.planner(planned)

	// DONE
	flags := o.redFlags(req.Transcript, judged.Confidence, judged, true)
	return o.assemble(req, profile, planned.Reply, planned.NextNodeID, judged.Score, judged.Confidence, flags)
}

// fallback is the guaranteed floor: heuristic evaluator, then node
// selector, then a canned reply by score bucket. When judged is
// non-nil (planner failure) the judge's score and confidence are kept
// and only reply selection and branching are heuristic.
func (o *Orchestrator) fallback(req *ReplyRequest, profile scenario.RoleProfile, threshold float64, judged *ai.JudgeResult, tags ...string) *ReplyOutcome {
	var score, confidence float64

	llmJudged := judged != nil
	if llmJudged {
		score = judged.Score
		confidence = judged.Confidence
	} else {
		judged = heuristic.Judge(req.Transcript, req.Node.SuccessCriteria)
		score = judged.Score
		confidence = heuristic.Confidence(req.Transcript, req.Node.SuccessCriteria, score)
	}

	next := scenario.NextNode(&req.Node, score, threshold)
	reply := o.phrases.Pick(profile, score)

	flags := o.redFlags(req.Transcript, confidence, judged, llmJudged)
	flags = append(flags, tags...)

	return o.assemble(req, profile, reply, next, score, confidence, flags)
}

func (o *Orchestrator) assemble(req *ReplyRequest, profile scenario.RoleProfile, reply, nextID string, score, confidence float64, flags []string) *ReplyOutcome {
	delta := score - req.Scores[req.Node.Category]

	return &ReplyOutcome{
		Reply:      reply,
		NextNodeID: nextID,
		ScoringUpdate: ScoringUpdate{
			Block: req.Node.Category,
			Delta: delta,
			Score: score,
		},
		RedFlags:    flags,
		DeltaScore:  delta,
		Confidence:  confidence,
		RoleProfile: string(profile),
	}
}

// redFlags derives the behavioral tags shared by the generative and
// fallback paths. missing_keywords is reported only when a real judge
// produced the missing-criteria set.
func (o *Orchestrator) redFlags(transcript string, confidence float64, judged *ai.JudgeResult, llmPath bool) []string {
	flags := []string{}

	if confidence < lowConfidenceCutoff || o.phrases.HasUncertainty(transcript) {
		flags = append(flags, FlagLowConfidence)
	}
	if utf8.RuneCountInString(strings.TrimSpace(transcript)) < veryShortRunes {
		flags = append(flags, FlagVeryShortResponse)
	}
	if llmPath && judged != nil && len(judged.MissingCriteria) > 0 {
		flags = append(flags, FlagMissingKeywords)
	}

	return flags
}

func (o *Orchestrator) recordLatency(req *ReplyRequest, latencyMS float64) {
	if o.metrics == nil {
		return
	}

	var tc TurnContext
	// The context map is caller-controlled free form; decode failures
	// just leave the ids empty.
	_ = mapstructure.Decode(req.Context, &tc)

	now := time.Now().Unix()
	if tc.SessionID == "" {
		tc.SessionID = fmt.Sprintf("session_%d", now)
	}
	if tc.TurnID == "" {
		tc.TurnID = fmt.Sprintf("turn_%d", now)
	}

	o.metrics.RecordLatencyAsync(metrics.LatencyEvent{
		Service:   metricsService,
		LatencyMS: latencyMS,
		SessionID: tc.SessionID,
		TurnID:    tc.TurnID,
		Success:   true,
	})
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
