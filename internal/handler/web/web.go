// Package web holds the dashboard templates.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"PriceLens/internal/domain/models"
	xhttp "PriceLens/pkg/http"
)

//go:embed templates/*.html
var templates embed.FS

const (
	PageIndex   = "index.html"
	PageModels  = "models.html"
	PagePredict = "predict.html"
)

var funcs = template.FuncMap{
	"toJSON": func(v interface{}) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
	"fmtNum": func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', 4, 64)
	},
	"fmtDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"join": strings.Join,
}

// NewRenderer parses the embedded pages with the shared layout.
func NewRenderer() (*xhttp.TemplateRenderer, error) {
	return xhttp.NewTemplateRenderer(templates,
		[]string{"templates/layout.html"},
		[]string{"templates/" + PageIndex, "templates/" + PageModels, "templates/" + PagePredict},
		funcs,
	)
}

type IndexPage struct {
	Title       string
	Error       string
	Overview    *models.DataOverview
	Prices      []models.PricePoint
	Summary     []models.ColumnSummary
	Correlation *models.CorrelationMatrix
}

type ModelsPage struct {
	Title  string
	Error  string
	Models []models.ModelInfo
	Report *models.TrainingReport
}

type PredictPage struct {
	Title  string
	Error  string
	Target string
	Form   models.PredictRequest
	Models []models.ModelKind
	Result *models.PredictionResult
}
