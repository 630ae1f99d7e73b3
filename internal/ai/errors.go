package ai

import (
	"errors"
	"fmt"
)

// Stage identifies which generative stage produced an error.
type Stage string

const (
	StageJudge   Stage = "judge"
	StagePlanner Stage = "planner"
)

// ErrorKind classifies a stage failure. Both kinds are recoverable:
// the orchestrator degrades to the heuristic path on either.
type ErrorKind string

const (
	// KindUnavailable covers network failures, timeouts and
	// non-success statuses from the generative backend.
	KindUnavailable ErrorKind = "unavailable"
	// KindMalformed covers responses that do not conform to the
	// expected structured shape.
	KindMalformed ErrorKind = "malformed"
)

// Error is the explicit fallible-operation result returned by Judge
// and Planner calls. The orchestrator matches on Stage and Kind
// instead of catching unstructured failures.
type Error struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Unavailable wraps a transport-level failure of the given stage.
func Unavailable(stage Stage, err error) *Error {
	return &Error{Stage: stage, Kind: KindUnavailable, Err: err}
}

// Malformed wraps a structured-output parse failure of the given stage.
func Malformed(stage Stage, err error) *Error {
	return &Error{Stage: stage, Kind: KindMalformed, Err: err}
}

// StageOf reports which stage failed, if err is a stage error.
func StageOf(err error) (Stage, bool) {
	var stageErr *Error
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
