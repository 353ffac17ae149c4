package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/boom", func(c echo.Context) error {
		return AppErrorResponse(c, BadRequestErrorf("bad %s", "input"))
	})
}

func serve(t *testing.T, s *Server, target string) APIResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_RoutesAndHealth(t *testing.T) {
	s := NewServer(pingHandler{}, WithMetrics(false, "", 0), WithPort(9090))
	assert.Equal(t, "0.0.0.0:9090", s.Addr())

	health := serve(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, health.Status)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, health.Data)

	assert.Equal(t, "pong", serve(t, s, "/ping").Data)

	boom := serve(t, s, "/boom")
	assert.Equal(t, http.StatusBadRequest, boom.Status)
}
