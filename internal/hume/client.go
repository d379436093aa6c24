package hume

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nikhilbhutani/affectrelay/internal/inference"
)

const (
	DefaultBaseURL = "https://api.hume.ai"
	APIKeyHeader   = "X-Hume-Api-Key"
)

// Config holds the credentials and endpoint for the Hume API.
type Config struct {
	APIKey  string
	BaseURL string // default: "https://api.hume.ai"
	Timeout time.Duration
}

// Client talks to Hume's batch expression measurement API. It implements
// inference.Transport. One Client is shared by all requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// StatusError is a non-200 answer from the API.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// Submit starts a batch job. Text goes as JSON, audio as a multipart upload
// with the models configuration in the "json" field.
func (c *Client) Submit(ctx context.Context, req inference.Request) (inference.JobHandle, error) {
	var (
		body        *bytes.Buffer
		contentType string
		err         error
	)
	switch req.Modality() {
	case inference.ModalityText:
		body, contentType, err = textJobBody(req)
	case inference.ModalityAudio:
		body, contentType, err = audioJobBody(req)
	default:
		return inference.JobHandle{}, fmt.Errorf("unsupported modality %q", req.Modality())
	}
	if err != nil {
		return inference.JobHandle{}, err
	}

	respBody, err := c.do(ctx, "start job", http.MethodPost, "/v0/batch/jobs", body, contentType)
	if err != nil {
		return inference.JobHandle{}, err
	}

	jobID := gjson.GetBytes(respBody, "job_id").String()
	if jobID == "" {
		return inference.JobHandle{}, fmt.Errorf("no job_id returned from Hume API")
	}
	return inference.JobHandle{ID: jobID, SubmittedAt: time.Now()}, nil
}

// Status reads state.status and, for failed jobs, the failure reason.
func (c *Client) Status(ctx context.Context, jobID string) (inference.JobState, error) {
	respBody, err := c.do(ctx, "job status", http.MethodGet, "/v0/batch/jobs/"+jobID, nil, "")
	if err != nil {
		return inference.JobState{}, err
	}

	state := gjson.GetBytes(respBody, "state")
	status := state.Get("status").String()
	if status == "" {
		return inference.JobState{}, fmt.Errorf("job status missing from response")
	}

	reason := state.Get("failure_reason").String()
	if reason == "" {
		reason = state.Get("message").String()
	}
	return inference.JobState{Status: inference.JobStatus(status), FailureReason: reason}, nil
}

// Predictions returns the prediction payload untouched.
func (c *Client) Predictions(ctx context.Context, jobID string) (inference.RawPrediction, error) {
	respBody, err := c.do(ctx, "job predictions", http.MethodGet, "/v0/batch/jobs/"+jobID+"/predictions", nil, "")
	if err != nil {
		return nil, err
	}
	return inference.RawPrediction(respBody), nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	httpReq.Header.Set(APIKeyHeader, c.cfg.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func textJobBody(req inference.Request) (*bytes.Buffer, string, error) {
	data, err := json.Marshal(map[string]any{
		"models": req.Models(),
		"text":   []string{req.Text()},
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}
	return bytes.NewBuffer(data), "application/json", nil
}

func audioJobBody(req inference.Request) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	// Audio file part
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(req.Filename())))
	h.Set("Content-Type", audioContentType(req.Filename()))
	fw, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(req.Audio()); err != nil {
		return nil, "", fmt.Errorf("copy audio data: %w", err)
	}

	// Models configuration
	cfg, err := json.Marshal(map[string]any{"models": req.Models()})
	if err != nil {
		return nil, "", fmt.Errorf("marshal models: %w", err)
	}
	if err := mw.WriteField("json", string(cfg)); err != nil {
		return nil, "", fmt.Errorf("write json field: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}

func audioContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "audio/wav"
}
