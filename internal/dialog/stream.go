package dialog

import (
	"context"
	"time"

	"github.com/valikhov/intervue/internal/ai"
)

// FrameType discriminates the typed frames of a streaming reply.
type FrameType string

const (
	FrameBackchannel FrameType = "backchannel"
	FrameJudge       FrameType = "judge"
	FramePlanner     FrameType = "planner"
	FrameFallback    FrameType = "fallback"
	FrameFinal       FrameType = "final"
	FrameDone        FrameType = "done"
)

// Frame is one ordered event of a streaming reply. Concrete frames
// marshal to discriminated JSON objects carrying their Type field.
type Frame interface {
	Kind() FrameType
}

// EmitFunc delivers one frame to the caller. A non-nil error means the
// caller is gone; the stream stops emitting but the turn still runs to
// completion.
type EmitFunc func(Frame) error

// BackchannelFrame is the immediate acknowledgment sent before any
// scoring work.
type BackchannelFrame struct {
	Type     FrameType `json:"type"`
	Response string    `json:"response"`
}

func (BackchannelFrame) Kind() FrameType { return FrameBackchannel }

// JudgeFrame is present only when the generative judge succeeded.
type JudgeFrame struct {
	Type   FrameType    `json:"type"`
	Result judgePayload `json:"result"`
}

func (JudgeFrame) Kind() FrameType { return FrameJudge }

// PlannerFrame is present only when the generative planner succeeded.
type PlannerFrame struct {
	Type   FrameType      `json:"type"`
	Result plannerPayload `json:"result"`
}

func (PlannerFrame) Kind() FrameType { return FramePlanner }

// FallbackFrame announces that the turn degraded to the heuristic path.
type FallbackFrame struct {
	Type   FrameType `json:"type"`
	Reason string    `json:"reason"`
}

func (FallbackFrame) Kind() FrameType { return FrameFallback }

// FinalFrame carries the same payload as the synchronous outcome.
type FinalFrame struct {
	Type FrameType `json:"type"`
	ReplyOutcome
}

func (FinalFrame) Kind() FrameType { return FrameFinal }

// DoneFrame closes every stream with the total turn latency.
type DoneFrame struct {
	Type      FrameType `json:"type"`
	LatencyMS float64   `json:"latency_ms"`
}

func (DoneFrame) Kind() FrameType { return FrameDone }

// Stream runs one turn emitting the ordered frame sequence: a
// backchannel first, judge/planner frames as stages succeed, a
// fallback notice when a stage fails, and always a final frame
// followed by a done frame. The single writer guarantee is the
// caller's: one Stream call owns one response channel.
func (o *Orchestrator) Stream(ctx context.Context, req *ReplyRequest, emit EmitFunc) *ReplyOutcome {
	start := time.Now()
	obs := &streamObserver{ctx: ctx, emit: emit}

	outcome := o.run(ctx, req, obs)

	obs.send(FinalFrame{Type: FrameFinal, ReplyOutcome: *outcome})

	latency := elapsedMS(start)
	o.recordLatency(req, latency)
	obs.send(DoneFrame{Type: FrameDone, LatencyMS: latency})

	return outcome
}

// streamObserver adapts stage progress into frames. A nil observer
// (the synchronous path) ignores everything. Once the caller
// disconnects, frames are dropped while in-flight work completes.
type streamObserver struct {
	ctx    context.Context
	emit   EmitFunc
	closed bool
}

func (s *streamObserver) send(frame Frame) {
	if s == nil || s.closed {
		return
	}
	if s.ctx != nil && s.ctx.Err() != nil {
		s.closed = true
		return
	}
	if err := s.emit(frame); err != nil {
		s.closed = true
	}
}

func (s *streamObserver) backchannel(phrase string) {
	s.send(BackchannelFrame{Type: FrameBackchannel, Response: phrase})
}

func (s *streamObserver) judge(result *ai.JudgeResult) {
	if result == nil {
		return
	}
	s.send(JudgeFrame{Type: FrameJudge, Result: toJudgePayload(result)})
}

func (s *streamObserver) planner(result *ai.PlannerResult) {
	if result == nil {
		return
	}
	s.send(PlannerFrame{Type: FramePlanner, Result: toPlannerPayload(result)})
}

func (s *streamObserver) fallback(reason string) {
	s.send(FallbackFrame{Type: FrameFallback, Reason: reason})
}
