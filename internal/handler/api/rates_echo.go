package api

import (
	"errors"
	"net/http"
	"time"

	models "RatePull/internal/domain/models"
	"RatePull/internal/service/metrics"
	"RatePull/internal/service/ratelimit"
	"RatePull/internal/usecase"
	xhttp "RatePull/pkg/http"
	xlogger "RatePull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RatesEchoHandler exposes the rate query and admin endpoints over Echo.
type RatesEchoHandler struct {
	logger    *xlogger.Logger
	queries   *usecase.RateQueries
	processor *usecase.ObservationProcessor
	scheduler *usecase.Scheduler
	rl        *ratelimit.Limiter
}

func NewRatesEchoHandler(
	logger *xlogger.Logger,
	queries *usecase.RateQueries,
	processor *usecase.ObservationProcessor,
	scheduler *usecase.Scheduler,
) *RatesEchoHandler {
	metrics.Register()
	return &RatesEchoHandler{
		logger:    logger,
		queries:   queries,
		processor: processor,
		scheduler: scheduler,
		rl:        ratelimit.New(),
	}
}

func (h *RatesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/latest", h.Latest)
	g.GET("/compare", h.Compare)
	g.GET("/history", h.History)
	g.GET("/daily-ohlc", h.DailyOHLC)
	g.GET("/best-today", h.BestToday)
	g.GET("/latest-all", h.LatestAll)
	g.GET("/pairs", h.Pairs)

	admin := g.Group("/admin")
	admin.POST("/snapshot", h.Snapshot)
	admin.POST("/snapshots", h.Snapshots)
	admin.POST("/crawl-now", h.CrawlNow)
}

func (h *RatesEchoHandler) Latest(c echo.Context) error {
	defer observe("latest")()
	req := &models.LatestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, err := h.queries.Latest(c.Request().Context(), req.Bank, req.Code)
	if err != nil {
		return h.queryError(c, "latest", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, snap)
}

func (h *RatesEchoHandler) Compare(c echo.Context) error {
	defer observe("compare")()
	req := &models.CompareRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.queries.LatestWithComparison(c.Request().Context(), req.Bank, req.Code, models.NormalizeField(req.Field))
	if err != nil {
		return h.queryError(c, "compare", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RatesEchoHandler) History(c echo.Context) error {
	defer observe("history")()
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.queries.History(c.Request().Context(), req.Bank, req.Code,
		models.NormalizeRange(req.Range), models.ParseFields(req.Fields))
	if err != nil {
		return h.queryError(c, "history", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RatesEchoHandler) DailyOHLC(c echo.Context) error {
	defer observe("daily_ohlc")()
	req := &models.DailyOHLCRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	day, err := h.requestDay(req.Date)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	res, err := h.queries.DailyOHLC(c.Request().Context(), req.Bank, req.Code, day, models.NormalizeField(req.Field))
	if err != nil {
		return h.queryError(c, "daily_ohlc", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RatesEchoHandler) BestToday(c echo.Context) error {
	defer observe("best_today")()
	req := &models.BestTodayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	var res models.BestOfDay
	var err error
	if req.Date == "" {
		res, err = h.queries.BestToday(ctx, req.Code)
	} else {
		var day time.Time
		day, err = h.requestDay(req.Date)
		if err != nil {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		res, err = h.queries.Engine().BestOfDay(ctx, req.Code, day)
	}
	if err != nil {
		return h.queryError(c, "best_today", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RatesEchoHandler) LatestAll(c echo.Context) error {
	defer observe("latest_all")()
	req := &models.LatestAllRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.queries.LatestAcrossBanks(c.Request().Context(), req.Code, models.ParseFields(req.Fields))
	if err != nil {
		return h.queryError(c, "latest_all", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RatesEchoHandler) Pairs(c echo.Context) error {
	defer observe("pairs")()
	req := &models.PairsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.queries.PairsWithDelta(c.Request().Context(), req.Bank, models.ParseFields(req.Fields))
	if err != nil {
		return h.queryError(c, "pairs", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Snapshot ingests a single raw observation.
func (h *RatesEchoHandler) Snapshot(c echo.Context) error {
	req := &models.RawObservation{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.ingest(c, []models.RawObservation{*req})
}

// Snapshots ingests a batch of raw observations.
func (h *RatesEchoHandler) Snapshots(c echo.Context) error {
	req := &models.SnapshotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.ingest(c, req.Items)
}

func (h *RatesEchoHandler) ingest(c echo.Context, items []models.RawObservation) error {
	res, err := h.processor.ProcessBatch(c.Request().Context(), models.ObservationBatch{
		At:    time.Now(),
		Items: items,
	})
	if err != nil {
		h.logger.Error("admin ingest error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res.Accepted == 0 && res.Rejected > 0 {
		return xhttp.BadRequestResponse(c, res)
	}
	return xhttp.CreatedResponse(c, res)
}

// CrawlNow triggers an immediate acquisition run. Rate limited per client
// so the admin API cannot hammer the bank sites.
func (h *RatesEchoHandler) CrawlNow(c echo.Context) error {
	if !h.rl.Allow("crawl:"+c.RealIP(), 3, 1.0/60) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "crawl rate limited")
	}
	res, err := h.scheduler.RunNow(c.Request().Context())
	if err != nil {
		h.logger.Error("crawl-now error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"crawl_failed", "", err.Error(), http.StatusConflict).WithError(err))
	}
	h.queries.Invalidate(c.Request().Context())
	return xhttp.SuccessResponse(c, res)
}

// requestDay parses an optional civil date in the analytics timezone,
// defaulting to today.
func (h *RatesEchoHandler) requestDay(date string) (time.Time, error) {
	loc := h.queries.Engine().Location()
	if date == "" {
		return time.Now().In(loc), nil
	}
	return time.ParseInLocation("2006-01-02", date, loc)
}

func (h *RatesEchoHandler) queryError(c echo.Context, op string, err error) error {
	metrics.QueryErrors.WithLabelValues(op).Inc()
	if models.IsValidation(err) {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	if errors.Is(err, models.ErrNoData) {
		return xhttp.NotFoundResponse(c, "no data")
	}
	h.logger.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func observe(endpoint string) func() {
	start := time.Now()
	return func() {
		metrics.QueryLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
