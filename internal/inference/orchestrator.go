package inference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Orchestrator drives one analysis run against the provider: either the
// submit/poll/fetch job cycle or a single synchronous exchange.
// It keeps no state between runs and is safe for concurrent use.
type Orchestrator struct {
	jobs     Transport
	analyzer Analyzer
}

// NewOrchestrator uses t for job runs. If t also implements Analyzer it
// serves sync runs too.
func NewOrchestrator(t Transport) *Orchestrator {
	o := &Orchestrator{jobs: t}
	if a, ok := t.(Analyzer); ok {
		o.analyzer = a
	}
	return o
}

// NewSyncOrchestrator serves sync runs only.
func NewSyncOrchestrator(a Analyzer) *Orchestrator {
	return &Orchestrator{analyzer: a}
}

// Run executes req and returns the raw prediction payload.
//
// Errors: ErrSubmission, ErrPoll, ErrFetch, ErrJobTimedOut, ErrCanceled or a
// *JobFailedError carrying the provider's reason. None of them are retried here.
func (o *Orchestrator) Run(ctx context.Context, req Request, cfg PollingConfig) (RawPrediction, error) {
	cfg = cfg.withDefaults()
	start := time.Now()
	log := slog.With("run_id", uuid.NewString(), "modality", req.Modality(), "mode", cfg.Mode)

	if cfg.Mode == ModeSync {
		return o.runSync(ctx, req, log, start)
	}
	if o.jobs == nil {
		return nil, fmt.Errorf("%w: no job transport configured", ErrSubmission)
	}

	log.Info("starting analysis job")
	handle, err := o.jobs.Submit(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceled(ctx)
		}
		log.Error("job submission failed", "error", err, "elapsed_ms", elapsedMs(start))
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	if handle.SubmittedAt.IsZero() {
		handle.SubmittedAt = time.Now()
	}
	log = log.With("job_id", handle.ID)
	log.Info("job started")

	if err := o.poll(ctx, handle, cfg, log); err != nil {
		log.Error("job did not complete", "status", TerminalStatus(err), "error", err, "elapsed_ms", elapsedMs(start))
		return nil, err
	}

	log.Info("fetching predictions")
	raw, err := o.jobs.Predictions(ctx, handle.ID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceled(ctx)
		}
		log.Error("prediction fetch failed", "error", err, "elapsed_ms", elapsedMs(start))
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	log.Info("job completed", "bytes", len(raw), "elapsed_ms", elapsedMs(start))
	return raw, nil
}

// poll returns nil once the job is COMPLETED. Every other exit is terminal:
// provider failure, attempt ceiling, cancellation or a status transport error.
func (o *Orchestrator) poll(ctx context.Context, handle JobHandle, cfg PollingConfig, log *slog.Logger) error {
	timer := time.NewTimer(cfg.Interval)
	defer timer.Stop()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return canceled(ctx)
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return canceled(ctx)
		}

		state, err := o.jobs.Status(ctx, handle.ID)
		if err != nil {
			if ctx.Err() != nil {
				return canceled(ctx)
			}
			return fmt.Errorf("%w: %w", ErrPoll, err)
		}
		log.Info("job status", "status", state.Status, "attempt", attempt, "max_attempts", cfg.MaxAttempts)

		switch state.Status {
		case StatusCompleted:
			return nil
		case StatusFailed:
			reason := state.FailureReason
			if reason == "" {
				reason = "unknown"
			}
			return &JobFailedError{JobID: handle.ID, Reason: reason}
		}

		timer.Reset(cfg.Interval)
	}

	return fmt.Errorf("%w: no terminal status after %d attempts", ErrJobTimedOut, cfg.MaxAttempts)
}

func (o *Orchestrator) runSync(ctx context.Context, req Request, log *slog.Logger, start time.Time) (RawPrediction, error) {
	if o.analyzer == nil {
		return nil, fmt.Errorf("%w: transport does not support synchronous analysis", ErrSubmission)
	}

	raw, err := o.analyzer.Analyze(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, canceled(ctx)
		}
		log.Error("synchronous analysis failed", "error", err, "elapsed_ms", elapsedMs(start))
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	log.Info("synchronous analysis completed", "bytes", len(raw), "elapsed_ms", elapsedMs(start))
	return raw, nil
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
