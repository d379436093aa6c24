package hume_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nikhilbhutani/affectrelay/internal/hume"
	"github.com/nikhilbhutani/affectrelay/internal/inference"
)

func newClient(srv *httptest.Server) *hume.Client {
	return hume.NewClient(hume.Config{APIKey: "test-key", BaseURL: srv.URL})
}

func TestSubmit_Text(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v0/batch/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get(hume.APIKeyHeader); got != "test-key" {
			t.Errorf("api key header: got %q, want %q", got, "test-key")
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type: got %q", ct)
		}

		var body struct {
			Models map[string]json.RawMessage `json:"models"`
			Text   []string                   `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
			return
		}
		if len(body.Text) != 1 || body.Text[0] != "I am furious" {
			t.Errorf("text: got %v", body.Text)
		}
		if _, ok := body.Models["language"]; !ok {
			t.Errorf("models: language missing from %v", body.Models)
		}

		w.Write([]byte(`{"job_id":"job-123"}`))
	}))
	defer srv.Close()

	handle, err := newClient(srv).Submit(context.Background(), inference.NewTextRequest("I am furious"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if handle.ID != "job-123" {
		t.Errorf("job id: got %q, want %q", handle.ID, "job-123")
	}
	if handle.SubmittedAt.IsZero() {
		t.Errorf("SubmittedAt not set")
	}
}

func TestSubmit_Audio(t *testing.T) {
	audio := []byte("RIFF....WAVEfmt ")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
			return
		}

		f, fh, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != string(audio) {
			t.Errorf("audio bytes: got %q", data)
		}
		if fh.Filename != "clip.wav" {
			t.Errorf("filename: got %q, want %q", fh.Filename, "clip.wav")
		}

		cfg := r.FormValue("json")
		if !strings.Contains(cfg, `"burst"`) {
			t.Errorf("json field: got %q, want burst model", cfg)
		}

		w.Write([]byte(`{"job_id":"job-audio"}`))
	}))
	defer srv.Close()

	handle, err := newClient(srv).Submit(context.Background(), inference.NewAudioRequest(audio, "clip.wav"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if handle.ID != "job-audio" {
		t.Errorf("job id: got %q", handle.ID)
	}
}

func TestSubmit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"invalid key"}`},
		{"missing job id", http.StatusOK, `{}`},
		{"server error", http.StatusInternalServerError, `oops`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, err := newClient(srv).Submit(context.Background(), inference.NewTextRequest("hi")); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestSubmit_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	_, err := newClient(srv).Submit(context.Background(), inference.NewTextRequest("hi"))
	var se *hume.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusTooManyRequests || se.Body != "slow down" {
		t.Errorf("status error: got %+v", se)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus inference.JobStatus
		wantReason string
		wantErr    bool
	}{
		{"queued", `{"state":{"status":"QUEUED"}}`, inference.StatusQueued, "", false},
		{"completed", `{"state":{"status":"COMPLETED","num_predictions":1}}`, inference.StatusCompleted, "", false},
		{"failed with reason", `{"state":{"status":"FAILED","failure_reason":"bad audio"}}`, inference.StatusFailed, "bad audio", false},
		{"failed with message", `{"state":{"status":"FAILED","message":"quota"}}`, inference.StatusFailed, "quota", false},
		{"missing status", `{"state":{}}`, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/v0/batch/jobs/job-1" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			state, err := newClient(srv).Status(context.Background(), "job-1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: got %v, wantErr %v", err, tt.wantErr)
			}
			if state.Status != tt.wantStatus || state.FailureReason != tt.wantReason {
				t.Errorf("state: got %+v, want %s/%q", state, tt.wantStatus, tt.wantReason)
			}
		})
	}
}

func TestPredictions(t *testing.T) {
	payload := `[{"results":{"predictions":[]}}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/batch/jobs/job-1/predictions" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	raw, err := newClient(srv).Predictions(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Predictions: %v", err)
	}
	if string(raw) != payload {
		t.Errorf("payload: got %s, want %s", raw, payload)
	}
}

func TestClient_DrivesOrchestrator(t *testing.T) {
	var statusCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/batch/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"job_id":"j"}`))
	})
	mux.HandleFunc("GET /v0/batch/jobs/j", func(w http.ResponseWriter, r *http.Request) {
		statusCalls++
		if statusCalls < 2 {
			w.Write([]byte(`{"state":{"status":"IN_PROGRESS"}}`))
			return
		}
		w.Write([]byte(`{"state":{"status":"COMPLETED"}}`))
	})
	mux.HandleFunc("GET /v0/batch/jobs/j/predictions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"results":{}}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	o := inference.NewOrchestrator(newClient(srv))
	raw, err := o.Run(context.Background(), inference.NewTextRequest("hello"), inference.PollingConfig{Interval: 1, MaxAttempts: 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(raw) != `[{"results":{}}]` {
		t.Errorf("raw: got %s", raw)
	}
	if statusCalls != 2 {
		t.Errorf("status calls: got %d, want 2", statusCalls)
	}
}
