package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nikhilbhutani/affectrelay/internal/api"
	"github.com/nikhilbhutani/affectrelay/internal/config"
	"github.com/nikhilbhutani/affectrelay/internal/inference"
	"github.com/nikhilbhutani/affectrelay/internal/multimodal/tts"
	"github.com/nikhilbhutani/affectrelay/internal/relay"
)

type staticRunner string

func (s staticRunner) Run(_ context.Context, _ inference.Request, _ inference.PollingConfig) (inference.RawPrediction, error) {
	return inference.RawPrediction(s), nil
}

type staticSpeech struct{}

func (staticSpeech) Name() string { return "static" }

func (staticSpeech) Synthesize(context.Context, tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	return &tts.SynthesisResult{Audio: []byte("mp3"), ContentType: "audio/mpeg"}, nil
}

func newServer(t *testing.T, cfg config.ServerConfig) *httptest.Server {
	t.Helper()
	raw := staticRunner(`{"emotions":[{"name":"Worry","score":0.6},{"name":"Joy","score":0.2}]}`)
	svc := relay.NewService(relay.Options{
		Text:   relay.Pipeline{Runner: raw},
		Audio:  relay.Pipeline{Runner: raw},
		Speech: staticSpeech{},
	})
	srv := httptest.NewServer(api.NewRouter(svc, nil, cfg).Setup())
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes(t *testing.T) {
	srv := newServer(t, config.ServerConfig{})

	tests := []struct {
		method, path, body string
		wantStatus         int
		wantBody           string
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK, `"status":"ok"`},
		{http.MethodGet, "/readyz", "", http.StatusOK, `"status":"ok"`},
		{http.MethodPost, "/api/emotion", `{"text":"I am worried"}`, http.StatusOK, `"dominantEmotion":"concern"`},
		{http.MethodPost, "/api/emotion", `{}`, http.StatusBadRequest, `"error"`},
		{http.MethodPost, "/api/tts", `{"text":"Hello"}`, http.StatusOK, "mp3"},
		{http.MethodGet, "/api/tts", "", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nope", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != tt.wantStatus {
			t.Errorf("%s %s: status %d, want %d", tt.method, tt.path, resp.StatusCode, tt.wantStatus)
		}
		if !strings.Contains(string(body), tt.wantBody) {
			t.Errorf("%s %s: body %s, want %s", tt.method, tt.path, body, tt.wantBody)
		}
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s %s: CORS header missing", tt.method, tt.path)
		}
	}
}

func TestRateLimitApplied(t *testing.T) {
	srv := newServer(t, config.ServerConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes: got %v, want [200 429]", codes)
	}
}
