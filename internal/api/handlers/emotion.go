package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nikhilbhutani/affectrelay/internal/apperr"
	"github.com/nikhilbhutani/affectrelay/internal/inference"
	"github.com/nikhilbhutani/affectrelay/internal/relay"
)

// maxAudioUpload bounds the multipart body of an audio analysis request.
const maxAudioUpload = 25 << 20

type EmotionAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (relay.Analysis, error)
	AnalyzeAudio(ctx context.Context, audio []byte, filename string) (relay.Analysis, error)
}

type EmotionHandler struct {
	svc EmotionAnalyzer
}

func NewEmotionHandler(svc EmotionAnalyzer) *EmotionHandler {
	return &EmotionHandler{svc: svc}
}

type analyzeTextRequest struct {
	Text string `json:"text"`
}

// analysisResponse carries the degraded result next to the error, so callers
// can always render an emotion.
type analysisResponse struct {
	relay.Analysis
	Error string `json:"error,omitempty"`
}

// AnalyzeText detects emotion in a JSON {"text": "..."} body.
func (h *EmotionHandler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req analyzeTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.AnalyzeText(r.Context(), req.Text)
	writeAnalysis(w, result, err)
}

// AnalyzeAudio detects emotion in the multipart "audio" file.
func (h *EmotionHandler) AnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No audio file provided"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No selected file"})
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read audio"})
		return
	}

	result, err := h.svc.AnalyzeAudio(r.Context(), audio, header.Filename)
	writeAnalysis(w, result, err)
}

func writeAnalysis(w http.ResponseWriter, result relay.Analysis, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, result)
		return
	}
	if apperr.IsValidation(err) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, analysisStatus(err), analysisResponse{Analysis: relay.Degraded(), Error: err.Error()})
}

func analysisStatus(err error) int {
	switch {
	case errors.Is(err, inference.ErrJobTimedOut):
		return http.StatusGatewayTimeout
	case errors.Is(err, inference.ErrCanceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
