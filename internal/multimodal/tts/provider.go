package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilbhutani/affectrelay/internal/config"
	"github.com/nikhilbhutani/affectrelay/internal/hume"
)

// ErrEmptyAudio is returned when a backend answers successfully but without audio.
var ErrEmptyAudio = errors.New("no audio data received")

// SynthesisRequest holds the parameters for text-to-speech generation.
type SynthesisRequest struct {
	Text          string  `json:"text"`
	Voice         string  `json:"voice,omitempty"`          // provider voice id
	FallbackVoice string  `json:"fallback_voice,omitempty"` // voice name for backends without the provider's voice library
	Description   string  `json:"description,omitempty"`    // natural-language prosody descriptor
	Speed         float64 `json:"speed,omitempty"`
}

// SynthesisResult holds the generated audio and its content type.
type SynthesisResult struct {
	Audio       []byte
	ContentType string // "audio/mpeg" (Hume, OpenAI) or "audio/wav" (Piper)
}

// Provider is the interface for text-to-speech backends.
type Provider interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	Name() string
}

// NewProvider builds the configured backend, wrapped in a Fallback when a
// second backend is set.
func NewProvider(cfg config.TTSConfig, humeCfg config.HumeConfig) (Provider, error) {
	primary, err := newBackend(cfg.Backend, cfg, humeCfg)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == "" || cfg.Fallback == cfg.Backend {
		return primary, nil
	}
	secondary, err := newBackend(cfg.Fallback, cfg, humeCfg)
	if err != nil {
		return nil, err
	}
	return NewFallback(primary, secondary), nil
}

func newBackend(name string, cfg config.TTSConfig, humeCfg config.HumeConfig) (Provider, error) {
	switch name {
	case "hume":
		return NewHumeTTS(hume.Config{APIKey: humeCfg.APIKey, BaseURL: humeCfg.BaseURL, Timeout: humeCfg.Timeout}), nil
	case "openai":
		return NewOpenAITTS(OpenAITTSConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}), nil
	case "local":
		return NewLocalTTS(LocalTTSConfig{
			PiperBinPath: cfg.LocalBinPath,
			ModelPath:    cfg.LocalModel,
		}), nil
	}
	return nil, fmt.Errorf("unknown tts backend %q", name)
}

// checkAudio turns an empty result into ErrEmptyAudio.
func checkAudio(provider string, res *SynthesisResult) (*SynthesisResult, error) {
	if res == nil || len(res.Audio) == 0 {
		return nil, fmt.Errorf("%s: %w", provider, ErrEmptyAudio)
	}
	return res, nil
}
