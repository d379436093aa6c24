package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nikhilbhutani/affectrelay/internal/apperr"
	"github.com/nikhilbhutani/affectrelay/internal/relay"
)

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req relay.SpeechRequest) (*relay.Speech, error)
}

type SpeechHandler struct {
	svc SpeechSynthesizer
}

func NewSpeechHandler(svc SpeechSynthesizer) *SpeechHandler {
	return &SpeechHandler{svc: svc}
}

type speakRequest struct {
	Text      string `json:"text"`
	Emotion   string `json:"emotion"`
	AgentName string `json:"agentName"`
}

// Speak converts text to audio in an agent's voice and returns it as a download.
func (h *SpeechHandler) Speak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	speech, err := h.svc.Synthesize(r.Context(), relay.SpeechRequest{
		Text:    req.Text,
		Emotion: req.Emotion,
		Agent:   req.AgentName,
	})
	if err != nil {
		writeJSON(w, speechStatus(err), map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", speech.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(speech.Audio)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", speech.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(speech.Audio)
}

func speechStatus(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
