package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quoteRequest struct {
	Model string  `json:"model" default:"RandomForest" validate:"oneof=LinearRegression RandomForest"`
	Open  float64 `json:"open" validate:"gte=0"`
	Month int     `json:"month" validate:"gte=0,lte=12"`
}

func bindJSON(t *testing.T, body string, req interface{}) interface{} {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(r, httptest.NewRecorder())
	return ReadAndValidateRequest(c, req)
}

func TestReadAndValidateRequest(t *testing.T) {
	var ok quoteRequest
	assert.Nil(t, bindJSON(t, `{"open":101.5,"month":2}`, &ok))
	assert.Equal(t, "RandomForest", ok.Model, "default applied")

	var bad quoteRequest
	res := bindJSON(t, `{"model":"SVM","open":-1,"month":13}`, &bad)
	errs, isList := res.([]ValidationError)
	require.True(t, isList)
	require.Len(t, errs, 3)

	assert.Equal(t, "ERR_ONEOF", errs[0].Code)
	assert.Equal(t, "model", errs[0].Field)
	assert.Equal(t, "model must be one of: LinearRegression, RandomForest", errs[0].Message)
	assert.Equal(t, []string{"LinearRegression", "RandomForest"}, errs[0].Params["options"])

	assert.Equal(t, "ERR_GTE", errs[1].Code)
	assert.Equal(t, "open must be at least 0", errs[1].Message)

	assert.Equal(t, "ERR_LTE", errs[2].Code)
	assert.Equal(t, "month", errs[2].Field)
	assert.Equal(t, "12", errs[2].Params["max"])
}

func TestReadAndValidateRequest_BindError(t *testing.T) {
	var req quoteRequest
	errs, isList := bindJSON(t, `{"month":"soon"}`, &req).([]ValidationError)
	require.True(t, isList)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}
