package models

import (
	"fmt"
	"time"
)

// ModelKind names a trained regressor.
type ModelKind string

const (
	ModelLinearRegression ModelKind = "LinearRegression"
	ModelRandomForest     ModelKind = "RandomForest"
)

// ModelKinds lists every supported model in display order.
var ModelKinds = []ModelKind{ModelLinearRegression, ModelRandomForest}

// ParseModelKind validates a model name from user input.
func ParseModelKind(s string) (ModelKind, error) {
	for _, k := range ModelKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

// ArtifactFile returns the file name a model is persisted under.
func (k ModelKind) ArtifactFile() string {
	return string(k) + ".gob"
}

const (
	PreprocessorFile   = "preprocessor.gob"
	TrainingReportFile = "training_report.json"

	ArtifactFormat  = "pricelens-artifact"
	ArtifactVersion = 1

	ArtifactKindPreprocessor = "preprocessor"
)

// ArtifactHeader precedes every persisted model or preprocessor. Features is
// the ordered input column list the artifact was fitted on.
type ArtifactHeader struct {
	Format    string
	Version   int
	Kind      string
	RunID     string
	CreatedAt time.Time
	Features  []string
	Target    string
}

// ModelScore holds held-out metrics for one model.
type ModelScore struct {
	Model      ModelKind `json:"model"`
	MSE        float64   `json:"mse"`
	RMSE       float64   `json:"rmse"`
	MAE        float64   `json:"mae"`
	R2         float64   `json:"r2"`
	R2Defined  bool      `json:"r2_defined"`
	FitSeconds float64   `json:"fit_seconds"`
}

// TrainingReport summarizes one training run.
type TrainingReport struct {
	RunID           string       `json:"run_id"`
	CreatedAt       time.Time    `json:"created_at"`
	Source          string       `json:"source"`
	Target          string       `json:"target"`
	Features        []string     `json:"features"`
	Categorical     []string     `json:"categorical,omitempty"`
	Rows            int          `json:"rows"`
	DroppedRows     int          `json:"dropped_rows"`
	TrainRows       int          `json:"train_rows"`
	TestRows        int          `json:"test_rows"`
	Components      int          `json:"pca_components"`
	OutputColumns   []string     `json:"output_columns"`
	Scores          []ModelScore `json:"scores"`
	DurationSeconds float64      `json:"duration_seconds"`
}

// ModelInfo describes a persisted artifact for the models view.
type ModelInfo struct {
	Model     ModelKind `json:"model"`
	File      string    `json:"file"`
	Available bool      `json:"available"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Features  []string  `json:"features,omitempty"`
}
