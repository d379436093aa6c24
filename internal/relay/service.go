// Package relay exposes the three caller-facing operations: text analysis,
// audio analysis and affect-aware speech synthesis.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/affectrelay/internal/affect"
	"github.com/nikhilbhutani/affectrelay/internal/apperr"
	"github.com/nikhilbhutani/affectrelay/internal/cache"
	"github.com/nikhilbhutani/affectrelay/internal/emotion"
	"github.com/nikhilbhutani/affectrelay/internal/inference"
	"github.com/nikhilbhutani/affectrelay/internal/multimodal/tts"
	"github.com/nikhilbhutani/affectrelay/internal/voice"
)

// Runner executes one analysis run. *inference.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, req inference.Request, cfg inference.PollingConfig) (inference.RawPrediction, error)
}

// Pipeline is how one modality is analyzed.
type Pipeline struct {
	Runner  Runner
	Polling inference.PollingConfig
}

// SpeechCache stores synthesized audio. *cache.Cache implements it.
type SpeechCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Options struct {
	Text     Pipeline
	Audio    Pipeline
	Speech   tts.Provider
	Cache    SpeechCache // optional
	CacheTTL time.Duration
}

type Service struct {
	text     Pipeline
	audio    Pipeline
	speech   tts.Provider
	cache    SpeechCache
	cacheTTL time.Duration
}

func NewService(opts Options) *Service {
	return &Service{
		text:     opts.Text,
		audio:    opts.Audio,
		speech:   opts.Speech,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
	}
}

// Analysis is the caller-facing analysis result.
type Analysis struct {
	Emotions        emotion.Profile `json:"emotions"`
	DominantEmotion affect.Category `json:"dominantEmotion"`
}

// Degraded is returned alongside every analysis error.
func Degraded() Analysis {
	return Analysis{Emotions: emotion.Profile{}, DominantEmotion: affect.Neutral}
}

// AnalyzeText classifies the emotional content of text. On failure it
// returns Degraded() together with the error.
func (s *Service) AnalyzeText(ctx context.Context, text string) (Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return Degraded(), apperr.Validation("text", "text is required")
	}
	return s.analyze(ctx, s.text, inference.NewTextRequest(text), slog.Int("chars", len(text)))
}

// AnalyzeAudio classifies vocal bursts in an audio clip. On failure it
// returns Degraded() together with the error.
func (s *Service) AnalyzeAudio(ctx context.Context, audio []byte, filename string) (Analysis, error) {
	if len(audio) == 0 {
		return Degraded(), apperr.Validation("audio", "audio file is required")
	}
	return s.analyze(ctx, s.audio, inference.NewAudioRequest(audio, filename), slog.Int("bytes", len(audio)))
}

func (s *Service) analyze(ctx context.Context, p Pipeline, req inference.Request, size slog.Attr) (Analysis, error) {
	start := time.Now()
	log := slog.With("op_id", uuid.NewString(), "modality", req.Modality())
	log.Info("analyzing emotion", size)

	if p.Runner == nil {
		return Degraded(), fmt.Errorf("%w: no analysis pipeline for %s", inference.ErrSubmission, req.Modality())
	}

	raw, err := p.Runner.Run(ctx, req, p.Polling)
	if err != nil {
		log.Error("emotion analysis failed", "error", err, "status", inference.TerminalStatus(err), "elapsed_ms", time.Since(start).Milliseconds())
		return Degraded(), err
	}

	profile := emotion.Extract(raw, req.Modality())
	result := Analysis{Emotions: profile, DominantEmotion: affect.Classify(profile)}

	log.Info("emotion analysis completed",
		"dominant_emotion", result.DominantEmotion,
		"emotions", len(profile),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// SpeechRequest is a synthesis request as the caller phrases it. Emotion and
// Agent are free-form; unknown values fall back to neutral and the default agent.
type SpeechRequest struct {
	Text    string
	Emotion string
	Agent   string
}

type Speech struct {
	Audio     []byte
	MediaType string
	Filename  string
}

type cachedSpeech struct {
	Audio     []byte `json:"audio"`
	MediaType string `json:"media_type"`
}

// Synthesize speaks req.Text in the agent's voice with the emotion's delivery.
func (s *Service) Synthesize(ctx context.Context, req SpeechRequest) (*Speech, error) {
	start := time.Now()
	category := affect.Parse(req.Emotion)

	sreq, err := voice.Build(req.Text, category, req.Agent)
	if err != nil {
		return nil, err
	}

	agent, known := voice.ResolveAgent(req.Agent)
	log := slog.With("op_id", uuid.NewString(), "agent", agent.Name, "emotion", category)
	if !known && req.Agent != "" {
		log.Warn("unknown agent, using default voice", "requested", req.Agent)
	}
	log.Info("generating speech", "description", sreq.Description, "chars", len(sreq.Text))

	key := cache.Key("tts", s.speech.Name(), sreq.Voice, sreq.FallbackVoice, sreq.Description,
		strconv.FormatFloat(sreq.Speed, 'f', -1, 64), sreq.Text)

	if s.cache != nil {
		var hit cachedSpeech
		err := s.cache.Get(ctx, key, &hit)
		switch {
		case err == nil && len(hit.Audio) > 0:
			log.Info("speech served from cache", "bytes", len(hit.Audio), "elapsed_ms", time.Since(start).Milliseconds())
			return s.speechResult(hit.Audio, hit.MediaType, req.Agent, category), nil
		case err != nil && !cache.IsMiss(err):
			log.Warn("speech cache read failed", "error", err)
		}
	}

	res, err := s.speech.Synthesize(ctx, sreq)
	if err != nil {
		log.Error("speech synthesis failed", "provider", s.speech.Name(), "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if len(res.Audio) == 0 {
		return nil, fmt.Errorf("synthesize speech: %w", tts.ErrEmptyAudio)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedSpeech{Audio: res.Audio, MediaType: res.ContentType}, s.cacheTTL); err != nil {
			log.Warn("speech cache write failed", "error", err)
		}
	}

	log.Info("speech generated", "provider", s.speech.Name(), "bytes", len(res.Audio), "elapsed_ms", time.Since(start).Milliseconds())
	return s.speechResult(res.Audio, res.ContentType, req.Agent, category), nil
}

func (s *Service) speechResult(audio []byte, mediaType, agent string, c affect.Category) *Speech {
	if mediaType == "" {
		mediaType = "audio/mpeg"
	}
	return &Speech{
		Audio:     audio,
		MediaType: mediaType,
		Filename:  voice.FilenameStem(agent, c) + extension(mediaType),
	}
}

func extension(mediaType string) string {
	switch mediaType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	}
	return ".mp3"
}
