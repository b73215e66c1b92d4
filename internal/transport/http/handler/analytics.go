package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"supportlens/internal/app"
	"supportlens/internal/repository"
	"supportlens/internal/transport/http/response"
)

const dateLayout = "2006-01-02"

type Analytics interface {
	Volume(ctx context.Context) (*app.Volume, error)
	TopCitedDocuments(ctx context.Context, k *int, r app.DateRange) ([]repository.FileCitationCount, error)
	ResponseMetrics(ctx context.Context, r app.DateRange) (*app.ResponseMetrics, error)
	QueryLogs(ctx context.Context, f app.QueryLogFilter) ([]app.QueryLogView, error)
}

type AnalyticsHandler struct {
	analytics Analytics
}

// TimeframeRequest holds optional inclusive dates in YYYY-MM-DD form.
type TimeframeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type TopDocumentsRequest struct {
	TimeframeRequest
	K *int `json:"k"`
}

type QueryLogsRequest struct {
	TimeframeRequest
	K                *int `json:"k"`
	IncludeCitations bool `json:"include_citations"`
	IncludeErrors    bool `json:"include_errors"`
}

func NewAnalyticsHandler(analytics Analytics) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) Volume(c *gin.Context) {
	volume, err := h.analytics.Volume(c.Request.Context())
	if err != nil {
		writeError(c, err, "count query logs failed")
		return
	}
	response.OK(c, volume)
}

func (h *AnalyticsHandler) TopDocuments(c *gin.Context) {
	var req TopDocumentsRequest
	r, ok := bindTimeframe(c, &req, &req.TimeframeRequest)
	if !ok {
		return
	}
	docs, err := h.analytics.TopCitedDocuments(c.Request.Context(), req.K, r)
	if err != nil {
		writeError(c, err, "rank cited documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *AnalyticsHandler) Metrics(c *gin.Context) {
	var req TimeframeRequest
	r, ok := bindTimeframe(c, &req, &req)
	if !ok {
		return
	}
	metrics, err := h.analytics.ResponseMetrics(c.Request.Context(), r)
	if err != nil {
		writeError(c, err, "compute response metrics failed")
		return
	}
	response.OK(c, metrics)
}

func (h *AnalyticsHandler) QueryLogs(c *gin.Context) {
	var req QueryLogsRequest
	r, ok := bindTimeframe(c, &req, &req.TimeframeRequest)
	if !ok {
		return
	}
	logs, err := h.analytics.QueryLogs(c.Request.Context(), app.QueryLogFilter{
		Range:            r,
		Limit:            req.K,
		IncludeCitations: req.IncludeCitations,
		IncludeErrors:    req.IncludeErrors,
	})
	if err != nil {
		writeError(c, err, "list query logs failed")
		return
	}
	response.OK(c, logs)
}

// bindTimeframe decodes an optional JSON body into req and parses the dates
// held by tf. It writes the 400 itself and reports false on bad input.
func bindTimeframe(c *gin.Context, req interface{}, tf *TimeframeRequest) (app.DateRange, bool) {
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return app.DateRange{}, false
		}
	}
	var r app.DateRange
	var err error
	if r.Start, err = parseDate(tf.StartDate); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "start_date must be YYYY-MM-DD")
		return app.DateRange{}, false
	}
	if r.End, err = parseDate(tf.EndDate); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "end_date must be YYYY-MM-DD")
		return app.DateRange{}, false
	}
	return r, true
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
