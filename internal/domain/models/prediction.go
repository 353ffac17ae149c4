package models

import "time"

// PredictInput is the user-supplied feature values for one prediction.
type PredictInput struct {
	Model  ModelKind
	Open   float64
	High   float64
	Low    float64
	Volume float64
	Year   int
	Month  int
	Day    int
	// Extra carries optional values for non-standard columns, keyed by name.
	Extra map[string]string
}

// ReconciledValue is one cell of the row handed to the preprocessor.
type ReconciledValue struct {
	Column    string  `json:"column"`
	Number    float64 `json:"number,omitempty"`
	Text      string  `json:"text,omitempty"`
	IsText    bool    `json:"is_text,omitempty"`
	Defaulted bool    `json:"defaulted,omitempty"`
}

// PredictionResult is the outcome of a single prediction.
type PredictionResult struct {
	Model      ModelKind         `json:"model"`
	RunID      string            `json:"run_id"`
	Target     string            `json:"target"`
	Value      float64           `json:"value"`
	Formatted  string            `json:"formatted"`
	Row        []ReconciledValue `json:"row"`
	Defaulted  []string          `json:"defaulted,omitempty"`
	UsedConfig bool              `json:"used_config_schema,omitempty"`
}

// PredictionEvent is published after every successful prediction.
type PredictionEvent struct {
	Model     ModelKind          `json:"model"`
	RunID     string             `json:"run_id"`
	Target    string             `json:"target"`
	Value     float64            `json:"value"`
	Inputs    map[string]float64 `json:"inputs"`
	Timestamp time.Time          `json:"ts"`
}
