package emotion

import (
	"sort"

	"github.com/tidwall/gjson"

	"github.com/nikhilbhutani/affectrelay/internal/inference"
)

// Score is one named emotion with its confidence in [0,1].
type Score struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Profile is a ranked list of emotions, highest score first.
type Profile []Score

// Top returns the highest-ranked emotion.
func (p Profile) Top() (Score, bool) {
	if len(p) == 0 {
		return Score{}, false
	}
	return p[0], true
}

// models lists the prediction keys to try for each modality, in order.
var models = map[inference.Modality][]string{
	inference.ModalityText:  {inference.ModelLanguage},
	inference.ModalityAudio: {inference.ModelBurst, inference.ModelProsody},
}

// Extract pulls the first available emotion list out of a provider payload.
//
// Accepted layouts:
//
//	[0].results.predictions.0.models.<model>.grouped_predictions.0.predictions.0.emotions  (batch job, array or bare object)
//	<model>.predictions.0.emotions                                                         (streaming/sync models API)
//	emotions                                                                               (self-hosted analyzer)
//
// Missing keys, wrong types and invalid JSON all produce an empty profile.
func Extract(raw inference.RawPrediction, modality inference.Modality) Profile {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return Profile{}
	}

	root := gjson.ParseBytes(raw)
	if root.IsArray() {
		root = root.Get("0")
	}
	if !root.IsObject() {
		return Profile{}
	}

	for _, model := range models[modality] {
		for _, path := range []string{
			"results.predictions.0.models." + model + ".grouped_predictions.0.predictions.0.emotions",
			model + ".predictions.0.emotions",
		} {
			if list := root.Get(path); hasItems(list) {
				return rank(list)
			}
		}
	}

	if list := root.Get("emotions"); hasItems(list) {
		return rank(list)
	}
	return Profile{}
}

func hasItems(r gjson.Result) bool {
	return r.IsArray() && len(r.Array()) > 0
}

// rank keeps the well-formed entries and sorts them by score, descending.
// Ties keep provider order.
func rank(list gjson.Result) Profile {
	out := Profile{}
	list.ForEach(func(_, v gjson.Result) bool {
		if s, ok := parseScore(v); ok {
			out = append(out, s)
		}
		return true
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// parseScore accepts {"name": "Anger", "score": 0.9}, {"label": "Anger", "score": 0.9}
// and the single-key form {"Anger": 0.9}.
func parseScore(v gjson.Result) (Score, bool) {
	if !v.IsObject() {
		return Score{}, false
	}

	name := v.Get("name")
	if !name.Exists() {
		name = v.Get("label")
	}
	score := v.Get("score")
	if name.Type == gjson.String && name.Str != "" && score.Type == gjson.Number {
		return Score{Name: name.Str, Score: clamp(score.Num)}, true
	}
	if name.Exists() || score.Exists() {
		return Score{}, false
	}

	fields := v.Map()
	if len(fields) != 1 {
		return Score{}, false
	}
	for k, val := range fields {
		if k != "" && val.Type == gjson.Number {
			return Score{Name: k, Score: clamp(val.Num)}, true
		}
	}
	return Score{}, false
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
