package app

import (
	"time"

	"mcspec/domain/core"
	"mcspec/internal"
)

// StageRunner executes one pipeline stage at a time, timing it and tagging
// failures with the stage name
type StageRunner struct {
	logger *internal.Logger
}

// NewStageRunner creates a new stage runner
func NewStageRunner(logger *internal.Logger) *StageRunner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StageRunner{logger: logger.With("stage")}
}

// Run executes fn as stage. A non-nil error comes back as *core.StageError.
func (r *StageRunner) Run(stage core.Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if err != nil {
		r.logger.Debug("%s failed after %s: %v", stage, elapsed, err)
		return &core.StageError{Stage: stage, Err: err}
	}
	r.logger.Trace("%s completed in %s", stage, elapsed)
	return nil
}
