package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/handler/web"
	"PriceLens/internal/service/ratelimit"
	"PriceLens/internal/usecase"
	xhttp "PriceLens/pkg/http"
	applogger "PriceLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the HTML views and the JSON API behind them.
type DashboardHandler struct {
	explorer  *usecase.Explorer
	predictor *usecase.Predictor
	limiter   *ratelimit.Limiter
	target    string
	l         *applogger.Logger
}

func NewDashboardHandler(
	explorer *usecase.Explorer,
	predictor *usecase.Predictor,
	limiter *ratelimit.Limiter,
	target string,
	l *applogger.Logger,
) *DashboardHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &DashboardHandler{explorer: explorer, predictor: predictor, limiter: limiter, target: target, l: l}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.IndexPage)
	e.GET("/models", h.ModelsPage)
	e.GET("/predict", h.PredictPage)
	e.POST("/predict", h.PredictSubmit, h.rateLimit)

	g := e.Group("/api")
	g.GET("/overview", h.Overview)
	g.GET("/prices", h.Prices)
	g.GET("/summary", h.Summary)
	g.GET("/summary.xlsx", h.SummaryXLSX)
	g.GET("/correlation", h.Correlation)
	g.GET("/models", h.Models)
	g.POST("/predict", h.Predict, h.rateLimit)
}

func (h *DashboardHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			h.l.Warn("predict rate limited", applogger.String("remote", c.RealIP()))
			return c.JSON(http.StatusTooManyRequests, xhttp.APIResponse{
				Status:  http.StatusTooManyRequests,
				Message: http.StatusText(http.StatusTooManyRequests),
			})
		}
		return next(c)
	}
}

func (h *DashboardHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.l.Error(op+" error", applogger.Error(err))
	} else {
		h.l.Warn(op+" failed", applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// --- JSON API ---

func (h *DashboardHandler) Overview(c echo.Context) error {
	res, err := h.explorer.Overview(c.Request().Context())
	if err != nil {
		return h.fail(c, "overview", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	f, err := priceFilter(req)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	res, err := h.explorer.Prices(c.Request().Context(), f)
	if err != nil {
		return h.fail(c, "prices", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func priceFilter(req *models.PricesRequest) (usecase.PriceFilter, error) {
	f := usecase.PriceFilter{Limit: req.Limit}
	if req.From != "" {
		t, ok := xhttp.ParseTime(req.From)
		if !ok {
			return f, xhttp.BadRequestErrorf("invalid from date %q", req.From)
		}
		f.From = t
	}
	if req.To != "" {
		t, ok := xhttp.ParseTime(req.To)
		if !ok {
			return f, xhttp.BadRequestErrorf("invalid to date %q", req.To)
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, xhttp.BadRequestError("from must be <= to")
	}
	return f, nil
}

func (h *DashboardHandler) Summary(c echo.Context) error {
	res, err := h.explorer.Summary(c.Request().Context())
	if err != nil {
		return h.fail(c, "summary", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) SummaryXLSX(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.explorer.ExportXLSX(c.Request().Context(), &buf); err != nil {
		return h.fail(c, "summary export", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="summary.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *DashboardHandler) Correlation(c echo.Context) error {
	res, err := h.explorer.Correlation(c.Request().Context())
	if err != nil {
		return h.fail(c, "correlation", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Models(c echo.Context) error {
	ctx := c.Request().Context()
	infos, err := h.predictor.Models(ctx)
	if err != nil {
		return h.fail(c, "models", err)
	}
	out := struct {
		Models []models.ModelInfo     `json:"models"`
		Report *models.TrainingReport `json:"last_training,omitempty"`
	}{Models: infos}
	if rep, err := h.predictor.LastReport(ctx); err == nil {
		out.Report = rep
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *DashboardHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.predictor.Predict(c.Request().Context(), req.ToInput())
	if err != nil {
		return h.fail(c, "predict", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// --- HTML views ---

func (h *DashboardHandler) IndexPage(c echo.Context) error {
	ctx := c.Request().Context()
	page := web.IndexPage{Title: "Explore"}
	status, err := h.loadIndex(ctx, &page)
	if err != nil {
		page.Error = toAppError(err).Message
		h.l.Warn("explore page", applogger.Error(err))
	}
	return c.Render(status, web.PageIndex, page)
}

func (h *DashboardHandler) loadIndex(ctx context.Context, page *web.IndexPage) (int, error) {
	var err error
	if page.Overview, err = h.explorer.Overview(ctx); err != nil {
		return toAppError(err).Status, err
	}
	if page.Prices, err = h.explorer.Prices(ctx, usecase.PriceFilter{}); err != nil {
		return toAppError(err).Status, err
	}
	if page.Summary, err = h.explorer.Summary(ctx); err != nil {
		return toAppError(err).Status, err
	}
	if page.Correlation, err = h.explorer.Correlation(ctx); err != nil {
		return toAppError(err).Status, err
	}
	return http.StatusOK, nil
}

func (h *DashboardHandler) ModelsPage(c echo.Context) error {
	ctx := c.Request().Context()
	page := web.ModelsPage{Title: "Models"}
	infos, err := h.predictor.Models(ctx)
	if err != nil {
		page.Error = toAppError(err).Message
		return c.Render(toAppError(err).Status, web.PageModels, page)
	}
	page.Models = infos
	if rep, err := h.predictor.LastReport(ctx); err == nil {
		page.Report = rep
	}
	return c.Render(http.StatusOK, web.PageModels, page)
}

func (h *DashboardHandler) newPredictPage() web.PredictPage {
	now := time.Now()
	return web.PredictPage{
		Title:  "Predict",
		Target: h.target,
		Models: models.ModelKinds,
		Form: models.PredictRequest{
			Model: string(models.ModelRandomForest),
			Year:  now.Year(),
			Month: int(now.Month()),
			Day:   now.Day(),
		},
	}
}

func (h *DashboardHandler) PredictPage(c echo.Context) error {
	return c.Render(http.StatusOK, web.PagePredict, h.newPredictPage())
}

func (h *DashboardHandler) PredictSubmit(c echo.Context) error {
	page := h.newPredictPage()
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		page.Form = *req
		page.Error = validationMessage(verr)
		return c.Render(http.StatusBadRequest, web.PagePredict, page)
	}
	page.Form = *req

	res, err := h.predictor.Predict(c.Request().Context(), req.ToInput())
	if err != nil {
		appErr := toAppError(err)
		h.l.Warn("predict page", applogger.Error(err))
		page.Error = appErr.Message
		return c.Render(appErr.Status, web.PagePredict, page)
	}
	page.Result = res
	return c.Render(http.StatusOK, web.PagePredict, page)
}

func validationMessage(verr interface{}) string {
	errs, ok := verr.([]xhttp.ValidationError)
	if !ok {
		return fmt.Sprint(verr)
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
