package models

import "time"

// AnalysisEvent is an anonymised record of one analysis. It never contains
// the user's text.
type AnalysisEvent struct {
	ID              string               `json:"id"`
	Timestamp       time.Time            `json:"timestamp"`
	Label           string               `json:"label"`
	Probability     float64              `json:"probability"`
	Alternatives    []AlternativeEmotion `json:"alternatives"`
	Language        string               `json:"language"`
	Translated      bool                 `json:"translated"`
	Valence         float64              `json:"valence"`
	ValenceLabel    string               `json:"valence_label"`
	SupportDegraded bool                 `json:"support_degraded"`
}

type LabelCount struct {
	Label string `json:"label" dynamodbav:"label"`
	Count int64  `json:"count" dynamodbav:"count"`
}
