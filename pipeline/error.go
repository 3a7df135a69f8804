package pipeline

import "fmt"

// PipelineError is the first error a Run call observed, tagged with the
// stage that produced it (spec.md §4.8 "the pipeline records it as the
// first error with the current stage number").
type PipelineError struct {
	Stage int
	Code  int
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline: stage %d returned error code %d", e.Stage, e.Code)
}

// Unwrap always returns nil: a handler's negative return is a caller-defined
// code, not one of this package's own sentinels, so there is nothing to
// compare it against beyond Code itself.
func (e *PipelineError) Unwrap() error { return nil }
