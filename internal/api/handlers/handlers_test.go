package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nikhilbhutani/affectrelay/internal/affect"
	"github.com/nikhilbhutani/affectrelay/internal/api/handlers"
	"github.com/nikhilbhutani/affectrelay/internal/apperr"
	"github.com/nikhilbhutani/affectrelay/internal/emotion"
	"github.com/nikhilbhutani/affectrelay/internal/inference"
	"github.com/nikhilbhutani/affectrelay/internal/relay"
)

type fakeService struct {
	analysis relay.Analysis
	speech   *relay.Speech
	err      error

	gotText     string
	gotAudio    []byte
	gotFilename string
	gotSpeech   relay.SpeechRequest
}

func (f *fakeService) AnalyzeText(_ context.Context, text string) (relay.Analysis, error) {
	f.gotText = text
	if f.err != nil {
		return relay.Degraded(), f.err
	}
	return f.analysis, nil
}

func (f *fakeService) AnalyzeAudio(_ context.Context, audio []byte, filename string) (relay.Analysis, error) {
	f.gotAudio, f.gotFilename = audio, filename
	if f.err != nil {
		return relay.Degraded(), f.err
	}
	return f.analysis, nil
}

func (f *fakeService) Synthesize(_ context.Context, req relay.SpeechRequest) (*relay.Speech, error) {
	f.gotSpeech = req
	return f.speech, f.err
}

type analysisBody struct {
	Emotions        []emotion.Score `json:"emotions"`
	DominantEmotion string          `json:"dominantEmotion"`
	Error           string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) analysisBody {
	t.Helper()
	var body analysisBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestAnalyzeText_OK(t *testing.T) {
	svc := &fakeService{analysis: relay.Analysis{
		Emotions:        emotion.Profile{{Name: "Anger", Score: 0.9}, {Name: "Joy", Score: 0.1}},
		DominantEmotion: affect.Anger,
	}}
	h := handlers.NewEmotionHandler(svc)

	rec := httptest.NewRecorder()
	h.AnalyzeText(rec, httptest.NewRequest(http.MethodPost, "/api/emotion", strings.NewReader(`{"text":"I am furious"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body := decode(t, rec)
	if body.DominantEmotion != "anger" || len(body.Emotions) != 2 || body.Emotions[0].Name != "Anger" {
		t.Errorf("body: got %+v", body)
	}
	if body.Error != "" {
		t.Errorf("unexpected error field %q", body.Error)
	}
	if svc.gotText != "I am furious" {
		t.Errorf("text: got %q", svc.gotText)
	}
}

func TestAnalyzeText_Errors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		err          error
		wantStatus   int
		wantDegraded bool
	}{
		{"bad json", `{`, nil, http.StatusBadRequest, false},
		{"validation", `{"text":""}`, apperr.Validation("text", "text is required"), http.StatusBadRequest, false},
		{"timed out", `{"text":"x"}`, fmt.Errorf("%w: no terminal status", inference.ErrJobTimedOut), http.StatusGatewayTimeout, true},
		{"canceled", `{"text":"x"}`, fmt.Errorf("%w: %w", inference.ErrCanceled, context.Canceled), http.StatusServiceUnavailable, true},
		{"job failed", `{"text":"x"}`, &inference.JobFailedError{JobID: "j", Reason: "bad"}, http.StatusInternalServerError, true},
		{"submission", `{"text":"x"}`, inference.ErrSubmission, http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewEmotionHandler(&fakeService{err: tt.err})
			rec := httptest.NewRecorder()
			h.AnalyzeText(rec, httptest.NewRequest(http.MethodPost, "/api/emotion", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decode(t, rec)
			if body.Error == "" {
				t.Errorf("missing error field")
			}
			if tt.wantDegraded {
				if body.DominantEmotion != "neutral" || body.Emotions == nil || len(body.Emotions) != 0 {
					t.Errorf("body: got %+v, want degraded", body)
				}
			}
		})
	}
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write(data)
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestAnalyzeAudio(t *testing.T) {
	svc := &fakeService{analysis: relay.Analysis{
		Emotions:        emotion.Profile{{Name: "Sympathy", Score: 0.7}},
		DominantEmotion: affect.Compassion,
	}}
	h := handlers.NewEmotionHandler(svc)

	body, ct := multipartBody(t, "audio", "clip.wav", []byte("RIFF"))
	req := httptest.NewRequest(http.MethodPost, "/api/emotion/audio", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.AnalyzeAudio(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got := decode(t, rec); got.DominantEmotion != "compassion" {
		t.Errorf("dominant: got %q", got.DominantEmotion)
	}
	if string(svc.gotAudio) != "RIFF" || svc.gotFilename != "clip.wav" {
		t.Errorf("upload: got %q as %q", svc.gotAudio, svc.gotFilename)
	}
}

func TestAnalyzeAudio_MissingFile(t *testing.T) {
	h := handlers.NewEmotionHandler(&fakeService{})

	body, ct := multipartBody(t, "file", "clip.wav", []byte("RIFF"))
	req := httptest.NewRequest(http.MethodPost, "/api/emotion/audio", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.AnalyzeAudio(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestAnalyzeAudio_Degraded(t *testing.T) {
	h := handlers.NewEmotionHandler(&fakeService{err: inference.ErrFetch})

	body, ct := multipartBody(t, "audio", "clip.wav", []byte("RIFF"))
	req := httptest.NewRequest(http.MethodPost, "/api/emotion/audio", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.AnalyzeAudio(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
	if got := decode(t, rec); got.DominantEmotion != "neutral" || got.Error == "" {
		t.Errorf("body: got %+v", got)
	}
}

func TestSpeak(t *testing.T) {
	svc := &fakeService{speech: &relay.Speech{Audio: []byte("mp3data"), MediaType: "audio/mpeg", Filename: "dr_chen_anger.mp3"}}
	h := handlers.NewSpeechHandler(svc)

	rec := httptest.NewRecorder()
	h.Speak(rec, httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(`{"text":"Hello","emotion":"anger","agentName":"Dr. Chen"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("content type: got %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="dr_chen_anger.mp3"` {
		t.Errorf("content disposition: got %q", got)
	}
	if rec.Body.String() != "mp3data" {
		t.Errorf("body: got %q", rec.Body.String())
	}
	want := relay.SpeechRequest{Text: "Hello", Emotion: "anger", Agent: "Dr. Chen"}
	if svc.gotSpeech != want {
		t.Errorf("request: got %+v, want %+v", svc.gotSpeech, want)
	}
}

func TestSpeak_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"bad json", `nope`, nil, http.StatusBadRequest},
		{"validation", `{"text":""}`, apperr.Validation("text", "text is required"), http.StatusBadRequest},
		{"deadline", `{"text":"x"}`, fmt.Errorf("synthesize speech: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"canceled", `{"text":"x"}`, context.Canceled, http.StatusServiceUnavailable},
		{"provider", `{"text":"x"}`, errors.New("tts failed (status 500)"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewSpeechHandler(&fakeService{err: tt.err})
			rec := httptest.NewRecorder()
			h.Speak(rec, httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			json.NewDecoder(rec.Body).Decode(&body)
			if body["error"] == "" {
				t.Errorf("missing error field")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h := handlers.NewHealthHandler(nil)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readyz without redis: got %d", rec.Code)
	}
}
