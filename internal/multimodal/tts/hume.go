package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nikhilbhutani/affectrelay/internal/hume"
)

// HumeTTS synthesizes speech with Hume's expressive TTS endpoint. The
// description field steers delivery; the voice is a Hume voice library id.
// Speed is not sent: delivery pace comes from the description.
type HumeTTS struct {
	cfg        hume.Config
	httpClient *http.Client
}

func NewHumeTTS(cfg hume.Config) *HumeTTS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = hume.DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &HumeTTS{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (h *HumeTTS) Name() string { return "hume-tts" }

type humeVoice struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

type humeUtterance struct {
	Text        string     `json:"text"`
	Description string     `json:"description,omitempty"`
	Voice       *humeVoice `json:"voice,omitempty"`
}

// Synthesize returns MP3 audio. The API answers either with JSON carrying
// base64 audio in generations[0] or utterances[0], or with the audio bytes.
func (h *HumeTTS) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	u := humeUtterance{
		Text:        req.Text,
		Description: req.Description,
	}
	if req.Voice != "" {
		u.Voice = &humeVoice{ID: req.Voice, Provider: "HUME_AI"}
	}

	data, err := json.Marshal(map[string]any{"utterances": []humeUtterance{u}})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL+"/v0/tts", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(hume.APIKeyHeader, h.cfg.APIKey)

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &hume.StatusError{Op: "tts", StatusCode: resp.StatusCode, Body: string(body)}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if mediaType == "" {
			mediaType = "audio/mpeg"
		}
		return checkAudio(h.Name(), &SynthesisResult{Audio: body, ContentType: mediaType})
	}

	audio, err := decodeHumeAudio(body)
	if err != nil {
		return nil, err
	}
	return checkAudio(h.Name(), &SynthesisResult{Audio: audio, ContentType: "audio/mpeg"})
}

func decodeHumeAudio(body []byte) ([]byte, error) {
	encoded := gjson.GetBytes(body, "generations.0.audio").String()
	if encoded == "" {
		encoded = gjson.GetBytes(body, "utterances.0.audio").String()
	}
	if encoded == "" {
		return nil, nil
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	return audio, nil
}
