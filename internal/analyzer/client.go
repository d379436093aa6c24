// Package analyzer is the client for a self-hosted emotion detection service.
// It answers in one round trip, so it backs the orchestrator's sync mode.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/nikhilbhutani/affectrelay/internal/inference"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

// Analyze posts text to /detect or audio to /detect/audio. The response is
// {"emotions":[{"label","score"}],"dominant_emotion"} and is returned as is.
func (c *Client) Analyze(ctx context.Context, req inference.Request) (inference.RawPrediction, error) {
	var (
		body        io.Reader
		contentType string
		path        string
	)

	switch req.Modality() {
	case inference.ModalityText:
		b, err := json.Marshal(detectRequest{Text: req.Text()})
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body, contentType, path = bytes.NewReader(b), "application/json", "/detect"
	case inference.ModalityAudio:
		buf, ct, err := audioForm(req)
		if err != nil {
			return nil, err
		}
		body, contentType, path = buf, ct, "/detect/audio"
	default:
		return nil, fmt.Errorf("unsupported modality %q", req.Modality())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("emotion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("emotion %s: %s", resp.Status, string(respBody))
	}
	return inference.RawPrediction(respBody), nil
}

func audioForm(req inference.Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", filepath.Base(req.Filename()))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.Audio()); err != nil {
		return nil, "", fmt.Errorf("copy audio data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
