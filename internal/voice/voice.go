// Package voice turns (text, affect, agent) into a synthesis request.
package voice

import (
	"strings"

	"github.com/nikhilbhutani/affectrelay/internal/affect"
	"github.com/nikhilbhutani/affectrelay/internal/apperr"
	"github.com/nikhilbhutani/affectrelay/internal/multimodal/tts"
)

// Agent is a speaking persona with a fixed voice.
type Agent struct {
	Slug    string
	Name    string
	VoiceID string // Hume voice library id
	// FallbackVoice is used by backends without the Hume voice library.
	FallbackVoice string
}

// DefaultAgent speaks whenever the requested agent is unknown.
const DefaultAgent = "minister-santos"

var agents = map[string]Agent{
	"minister-santos": {Slug: "minister-santos", Name: "Minister Santos", VoiceID: "ee96fb5f-ec1a-4f41-a9ba-6d119e64c8fd", FallbackVoice: "onyx"},
	"dr-chen":         {Slug: "dr-chen", Name: "Dr. Chen", VoiceID: "5bb7de05-c8fe-426a-8fcc-ba4fc4ce9f9c", FallbackVoice: "echo"},
	"mayor-okonjo":    {Slug: "mayor-okonjo", Name: "Mayor Okonjo", VoiceID: "b89de4b1-3df6-4e4f-a054-9aed4351092d", FallbackVoice: "fable"},
	"ms-patel":        {Slug: "ms-patel", Name: "Ms. Patel", VoiceID: "d8ab67c6-953d-4bd8-9370-8fa53a0f1453", FallbackVoice: "nova"},
}

// Prosody is the delivery for one affect category.
type Prosody struct {
	Descriptor string
	Speed      float64
}

var prosody = map[affect.Category]Prosody{
	affect.Neutral:     {Descriptor: "neutral", Speed: 1.0},
	affect.Anger:       {Descriptor: "angry", Speed: 1.2},
	affect.Compassion:  {Descriptor: "compassionate", Speed: 0.9},
	affect.Frustration: {Descriptor: "frustrated", Speed: 1.1},
	affect.Enthusiasm:  {Descriptor: "enthusiastic", Speed: 1.15},
	affect.Concern:     {Descriptor: "concerned", Speed: 0.95},
}

// Agents lists the known agents, ordered by slug.
func Agents() []Agent {
	return []Agent{agents["dr-chen"], agents["mayor-okonjo"], agents["minister-santos"], agents["ms-patel"]}
}

// ResolveAgent finds an agent by display name or slug, ignoring case,
// punctuation and separators. The second result is false when the default
// agent was substituted.
func ResolveAgent(name string) (Agent, bool) {
	if a, ok := agents[slug(name)]; ok {
		return a, true
	}
	return agents[DefaultAgent], false
}

// ProsodyFor returns the delivery for c; invalid categories get the neutral one.
func ProsodyFor(c affect.Category) Prosody {
	if p, ok := prosody[c]; ok {
		return p
	}
	return prosody[affect.Neutral]
}

// Build assembles a synthesis request. It performs no I/O.
func Build(text string, c affect.Category, agentName string) (tts.SynthesisRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tts.SynthesisRequest{}, apperr.Validation("text", "text is required")
	}

	agent, _ := ResolveAgent(agentName)
	p := ProsodyFor(c)
	return tts.SynthesisRequest{
		Text:          text,
		Voice:         agent.VoiceID,
		FallbackVoice: agent.FallbackVoice,
		Description:   p.Descriptor,
		Speed:         p.Speed,
	}, nil
}

// FilenameStem is the suggested download name without extension,
// e.g. "minister_santos_anger".
func FilenameStem(agentName string, c affect.Category) string {
	agent, _ := ResolveAgent(agentName)
	if !c.Valid() {
		c = affect.Neutral
	}
	return strings.ReplaceAll(agent.Slug, "-", "_") + "_" + string(c)
}

// slug maps "Dr. Chen", "dr_chen" and "DR-CHEN" to "dr-chen".
func slug(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}
