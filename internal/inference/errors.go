package inference

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrSubmission  = errors.New("job submission failed")
	ErrPoll        = errors.New("job status request failed")
	ErrFetch       = errors.New("prediction fetch failed")
	ErrJobTimedOut = errors.New("job timed out")
	ErrCanceled    = errors.New("job canceled")
)

// JobFailedError means the provider itself reported the job as failed.
type JobFailedError struct {
	JobID  string
	Reason string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Reason)
}

// TerminalStatus maps the result of Run to the terminal status the run reached.
func TerminalStatus(err error) JobStatus {
	var failed *JobFailedError
	switch {
	case err == nil:
		return StatusCompleted
	case errors.As(err, &failed):
		return StatusFailed
	case errors.Is(err, ErrJobTimedOut):
		return StatusTimedOut
	case errors.Is(err, ErrCanceled):
		return StatusCanceled
	}
	return StatusFailed
}

func canceled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
}
