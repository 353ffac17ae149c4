package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/handler/web"
	"PriceLens/internal/repository"
	"PriceLens/internal/service/ratelimit"
	"PriceLens/internal/services/features"
	"PriceLens/internal/services/ml"
	"PriceLens/internal/usecase"
	xhttp "PriceLens/pkg/http"
	"PriceLens/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFeatures = []string{"Open", "High", "Low", "Volume", "year", "month", "day"}

func writePrices(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Adj Close,Volume\n")
	d := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		open := 120 + float64(i%11) + float64(i)*0.1
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,%.2f,\"%d\"\n",
			d.AddDate(0, 0, i).Format("2006-01-02"), open, open+1, open-1, open+0.5, open+0.25, 100000+i*100)
	}
	p := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
	return p
}

type fixture struct {
	e     *echo.Echo
	store *repository.FileArtifactStore
}

func newFixture(t *testing.T, dataPath string, train bool) *fixture {
	t.Helper()
	loader := usecase.NewPriceLoader(repository.NewCSVSource(dataPath), nil, time.Minute, metrics.Nop{}, nil)
	store := repository.NewFileArtifactStore(filepath.Join(t.TempDir(), "models"))
	if train {
		forest := ml.DefaultForestParams()
		forest.Trees = 5
		tr := usecase.NewTrainer(loader, store, repository.NopPublisher{}, metrics.Nop{}, usecase.TrainerConfig{
			Features: testFeatures, Target: models.ColClose, TestRatio: 0.2, Seed: 42, Forest: forest,
		}, nil)
		_, err := tr.Train(context.Background())
		require.NoError(t, err)
	}
	predictor := usecase.NewPredictor(store, usecase.NewReconciler(features.Spec{Features: testFeatures}, nil),
		repository.NopPublisher{}, metrics.Nop{}, models.ColClose, nil)
	h := NewDashboardHandler(usecase.NewExplorer(loader), predictor, ratelimit.New(100, 100), models.ColClose, nil)

	e := echo.New()
	r, err := web.NewRenderer()
	require.NoError(t, err)
	e.Renderer = r
	h.RegisterRoutes(e)
	return &fixture{e: e, store: store}
}

func (f *fixture) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestAPI_PricesAndStats(t *testing.T) {
	f := newFixture(t, writePrices(t, 30), false)

	env := decode(t, f.do(t, http.MethodGet, "/api/prices?limit=5&from=2022-03-02", "", ""))
	assert.Equal(t, http.StatusOK, env.Status)
	var list struct {
		Rows  []models.PricePoint `json:"rows"`
		Total int64               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Rows, 5)
	assert.Equal(t, int64(5), list.Total)

	env = decode(t, f.do(t, http.MethodGet, "/api/prices?from=garbage", "", ""))
	assert.Equal(t, http.StatusBadRequest, env.Status)

	env = decode(t, f.do(t, http.MethodGet, "/api/summary", "", ""))
	var summary []models.ColumnSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	require.NotEmpty(t, summary)
	assert.Equal(t, 30, summary[0].Count)

	env = decode(t, f.do(t, http.MethodGet, "/api/correlation", "", ""))
	var corr models.CorrelationMatrix
	require.NoError(t, json.Unmarshal(env.Data, &corr))
	assert.Equal(t, len(corr.Columns), len(corr.Values))

	rec := f.do(t, http.MethodGet, "/api/summary.xlsx", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")
}

func TestAPI_MissingDataFile(t *testing.T) {
	f := newFixture(t, filepath.Join(t.TempDir(), "absent.csv"), false)

	env := decode(t, f.do(t, http.MethodGet, "/api/summary", "", ""))
	assert.Equal(t, http.StatusNotFound, env.Status)
	assert.Contains(t, string(env.Data), "ERR_DATA_NOT_FOUND")

	rec := f.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "price data not found")
}

func TestAPI_Predict(t *testing.T) {
	f := newFixture(t, writePrices(t, 40), true)

	body := `{"model":"LinearRegression","open":125,"high":126,"low":124,"volume":101000,"year":2022,"month":3,"day":15}`
	env := decode(t, f.do(t, http.MethodPost, "/api/predict", echo.MIMEApplicationJSON, body))
	require.Equal(t, http.StatusOK, env.Status, string(env.Data))
	var res models.PredictionResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.ModelLinearRegression, res.Model)
	assert.True(t, strings.HasPrefix(res.Formatted, "$"))
	assert.Len(t, res.Row, len(testFeatures))

	env = decode(t, f.do(t, http.MethodPost, "/api/predict", echo.MIMEApplicationJSON, `{"model":"SVM"}`))
	assert.Equal(t, http.StatusBadRequest, env.Status)

	env = decode(t, f.do(t, http.MethodGet, "/api/models", "", ""))
	assert.Equal(t, http.StatusOK, env.Status)
	assert.Contains(t, string(env.Data), "last_training")
}

func TestAPI_PredictMissingModel(t *testing.T) {
	f := newFixture(t, writePrices(t, 20), false)

	env := decode(t, f.do(t, http.MethodPost, "/api/predict", echo.MIMEApplicationJSON, `{"model":"RandomForest","open":1}`))
	assert.Equal(t, http.StatusNotFound, env.Status)
	assert.Contains(t, string(env.Data), "ERR_MODEL_NOT_FOUND")

	form := url.Values{"model": {"RandomForest"}, "open": {"1"}, "year": {"2023"}, "month": {"2"}, "day": {"30"}}
	rec := f.do(t, http.MethodPost, "/predict", echo.MIMEApplicationForm, form.Encode())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "model artifact not found")
	assert.NotContains(t, rec.Body.String(), "Predicted")
}

func TestHTML_Pages(t *testing.T) {
	f := newFixture(t, writePrices(t, 40), true)

	rec := f.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "close-chart")
	assert.Contains(t, rec.Body.String(), "corr-chart")

	rec = f.do(t, http.MethodGet, "/models", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "RandomForest.gob")
	assert.Contains(t, rec.Body.String(), "Last training run")

	rec = f.do(t, http.MethodGet, "/predict", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="open"`)

	form := url.Values{"model": {"RandomForest"}, "open": {"125"}, "high": {"126"}, "low": {"124"},
		"volume": {"100000"}, "year": {"2022"}, "month": {"3"}, "day": {"10"}}
	rec = f.do(t, http.MethodPost, "/predict", echo.MIMEApplicationForm, form.Encode())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Predicted Close")

	form.Set("month", "13")
	rec = f.do(t, http.MethodPost, "/predict", echo.MIMEApplicationForm, form.Encode())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := NewDashboardHandler(nil, nil, ratelimit.New(1, 0.0001), models.ColClose, nil)
	e := echo.New()
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, h.rateLimit)

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestToAppError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, toAppError(fmt.Errorf("x: %w", models.ErrModelNotFound)).Status)
	assert.Equal(t, http.StatusUnprocessableEntity, toAppError(models.ErrSchemaMismatch).Status)
	assert.Equal(t, http.StatusBadRequest, toAppError(xhttp.BadRequestError("bad")).Status)
	assert.Equal(t, http.StatusInternalServerError, toAppError(fmt.Errorf("boom")).Status)
}
