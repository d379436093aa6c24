package tts

import (
	"context"
	"errors"
	"log/slog"
)

// Fallback tries the primary backend and, on any error other than
// cancellation, the secondary one.
type Fallback struct {
	primary   Provider
	secondary Provider
}

func NewFallback(primary, secondary Provider) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *Fallback) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	res, err := f.primary.Synthesize(ctx, req)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	slog.Warn("primary provider failed, trying fallback",
		"primary", f.primary.Name(),
		"fallback", f.secondary.Name(),
		"error", err,
	)
	res, err2 := f.secondary.Synthesize(ctx, req)
	if err2 != nil {
		return nil, errors.Join(err, err2)
	}
	return res, nil
}
