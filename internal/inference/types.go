package inference

import (
	"context"
	"fmt"
	"maps"
	"time"
)

// Modality is the kind of input submitted for analysis.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// Model names understood by the provider's expression measurement API.
const (
	ModelLanguage = "language"
	ModelBurst    = "burst"
	ModelProsody  = "prosody"
)

// Request is a single analysis request. Build it with NewTextRequest or
// NewAudioRequest; it is not modified afterwards.
type Request struct {
	modality Modality
	text     string
	audio    []byte
	filename string
	models   map[string]any
}

func NewTextRequest(text string) Request {
	return Request{
		modality: ModalityText,
		text:     text,
		models: map[string]any{
			ModelLanguage: map[string]any{
				"granularity":       "utterance",
				"identify_speakers": false,
				"sentiment":         map[string]any{},
				"toxicity":          map[string]any{},
			},
		},
	}
}

// NewAudioRequest copies audio so later writes by the caller are not observed.
func NewAudioRequest(audio []byte, filename string) Request {
	if filename == "" {
		filename = "audio.wav"
	}
	return Request{
		modality: ModalityAudio,
		audio:    append([]byte(nil), audio...),
		filename: filename,
		models: map[string]any{
			ModelBurst: map[string]any{},
		},
	}
}

// WithModels returns a copy of r with a different models configuration.
func (r Request) WithModels(models map[string]any) Request {
	r.models = maps.Clone(models)
	return r
}

func (r Request) Modality() Modality { return r.modality }
func (r Request) Text() string       { return r.text }
func (r Request) Filename() string   { return r.filename }

// Audio returns the audio payload. Callers must not modify it.
func (r Request) Audio() []byte { return r.audio }

// Models returns a shallow copy of the enabled analysis models.
func (r Request) Models() map[string]any { return maps.Clone(r.models) }

// JobHandle identifies a provider-hosted job for the lifetime of one run.
type JobHandle struct {
	ID          string
	SubmittedAt time.Time
}

// JobStatus is the state of a job. TimedOut and Canceled are never reported
// by the provider; they are produced locally by the orchestrator.
type JobStatus string

const (
	StatusQueued     JobStatus = "QUEUED"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
	StatusTimedOut   JobStatus = "TIMED_OUT"
	StatusCanceled   JobStatus = "CANCELED"
)

func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut, StatusCanceled:
		return true
	}
	return false
}

// JobState is one status observation returned by the provider.
type JobState struct {
	Status        JobStatus
	FailureReason string
}

// RawPrediction is the provider payload as received. Its shape is not fixed.
type RawPrediction []byte

// Mode selects how a run talks to the provider.
type Mode string

const (
	ModeJob  Mode = "job"
	ModeSync Mode = "sync"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeJob, ModeSync:
		return Mode(s), nil
	case "":
		return ModeJob, nil
	}
	return "", fmt.Errorf("unknown analysis mode %q", s)
}

const (
	DefaultPollInterval = time.Second
	DefaultMaxAttempts  = 15
)

// PollingConfig bounds a job run to roughly Interval*MaxAttempts plus transport latency.
type PollingConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Mode        Mode
}

func DefaultPollingConfig() PollingConfig {
	return PollingConfig{
		Interval:    DefaultPollInterval,
		MaxAttempts: DefaultMaxAttempts,
		Mode:        ModeJob,
	}
}

func (c PollingConfig) withDefaults() PollingConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Mode == "" {
		c.Mode = ModeJob
	}
	return c
}

// Transport is the provider's batch job API: submit, poll, fetch.
type Transport interface {
	Submit(ctx context.Context, req Request) (JobHandle, error)
	Status(ctx context.Context, jobID string) (JobState, error)
	Predictions(ctx context.Context, jobID string) (RawPrediction, error)
}

// Analyzer is a synchronous analysis endpoint: one request, one response.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (RawPrediction, error)
}
