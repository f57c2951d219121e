package pipeline

import "fmt"

// Stage names a pipeline step.
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageExtract  Stage = "extract"
	StageSegment  Stage = "segment"
	StageBudget   Stage = "budget"
	StageDispatch Stage = "dispatch"
	StageWrite    Stage = "write"
)

// StageError is a fatal error tagged with the step that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
