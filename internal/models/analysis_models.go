package models

type AnalysisRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type AlternativeEmotion struct {
	Emotion     string  `json:"emotion"`
	Probability float64 `json:"probability"`
}

// Prediction scores are percentages in [0,100].
type Prediction struct {
	Label        string               `json:"label"`
	Probability  float64              `json:"probability"`
	Alternatives []AlternativeEmotion `json:"alternatives"`
}

// AnalysisResponse carries OriginalText and TranslatedText only when the
// request text was translated before scoring.
type AnalysisResponse struct {
	Prediction
	Support        string `json:"support"`
	OriginalText   string `json:"original_text,omitempty"`
	TranslatedText string `json:"translated_text,omitempty"`

	SupportDegraded bool `json:"-"`
}

func (r *AnalysisResponse) Translated() bool {
	return r.TranslatedText != ""
}

type TranscriptionResponse struct {
	Text string `json:"text"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
