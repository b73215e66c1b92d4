package app

import (
	"context"
	"time"

	"supportlens/internal/platform/logger"
	"supportlens/internal/repository"
)

// DateRange is an inclusive range of calendar days. Zero values mean
// 1970-01-01 for Start and today for End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

type Volume struct {
	Daily   int64 `json:"daily_count"`
	Weekly  int64 `json:"weekly_count"`
	Monthly int64 `json:"monthly_count"`
}

type ResponseMetrics struct {
	SuccessRate float64 `json:"success_rate"`
	AvgLatency  float64 `json:"avg_latency"`
}

type QueryLogView struct {
	ID        uint       `json:"id"`
	Query     string     `json:"query"`
	Response  *string    `json:"response"`
	Latency   float64    `json:"latency"`
	Success   bool       `json:"success"`
	Error     *string    `json:"error"`
	Timestamp time.Time  `json:"timestamp"`
	Citations []Citation `json:"citations"`
}

type QueryLogFilter struct {
	Range            DateRange
	Limit            *int
	IncludeCitations bool
	IncludeErrors    bool
}

// AnalyticsService answers read-only questions over the query log store.
type AnalyticsService struct {
	logs      QueryLogReader
	citations CitationReader
	chunks    ChunkFetcher
	now       func() time.Time
	log       *logger.Logger
}

func NewAnalyticsService(logs QueryLogReader, citations CitationReader, chunks ChunkFetcher, log *logger.Logger) *AnalyticsService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalyticsService{
		logs:      logs,
		citations: citations,
		chunks:    chunks,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log.With("service", "analytics"),
	}
}

// Volume counts attempts logged today and over the last 7 and 30 days.
func (s *AnalyticsService) Volume(ctx context.Context) (*Volume, error) {
	today := truncateDay(s.now())
	tomorrow := today.AddDate(0, 0, 1)

	daily, err := s.logs.CountBetween(ctx, today, tomorrow, nil)
	if err != nil {
		return nil, err
	}
	weekly, err := s.logs.CountBetween(ctx, today.AddDate(0, 0, -7), tomorrow, nil)
	if err != nil {
		return nil, err
	}
	monthly, err := s.logs.CountBetween(ctx, today.AddDate(0, 0, -30), tomorrow, nil)
	if err != nil {
		return nil, err
	}
	return &Volume{Daily: daily, Weekly: weekly, Monthly: monthly}, nil
}

// TopCitedDocuments ranks file paths by citation count. A nil k returns all.
func (s *AnalyticsService) TopCitedDocuments(ctx context.Context, k *int, r DateRange) ([]repository.FileCitationCount, error) {
	limit, err := limitOf(k)
	if err != nil {
		return nil, err
	}
	start, end, err := s.window(r)
	if err != nil {
		return nil, err
	}
	out, err := s.citations.TopFilePaths(ctx, start, end, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []repository.FileCitationCount{}
	}
	return out, nil
}

// ResponseMetrics reports the success rate in percent (0 with no data) and
// the mean latency in seconds (-1 with no data).
func (s *AnalyticsService) ResponseMetrics(ctx context.Context, r DateRange) (*ResponseMetrics, error) {
	start, end, err := s.window(r)
	if err != nil {
		return nil, err
	}
	succeeded := true
	okCount, err := s.logs.CountBetween(ctx, start, end, &succeeded)
	if err != nil {
		return nil, err
	}
	total, err := s.logs.CountBetween(ctx, start, end, nil)
	if err != nil {
		return nil, err
	}

	out := &ResponseMetrics{AvgLatency: -1}
	if total > 0 {
		out.SuccessRate = float64(okCount) / float64(total) * 100
	}
	avg, found, err := s.logs.AverageLatency(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if found {
		out.AvgLatency = avg
	}
	return out, nil
}

// QueryLogs lists logged attempts, optionally with the content of the chunks
// each one cited.
func (s *AnalyticsService) QueryLogs(ctx context.Context, f QueryLogFilter) ([]QueryLogView, error) {
	limit, err := limitOf(f.Limit)
	if err != nil {
		return nil, err
	}
	start, end, err := s.window(f.Range)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.List(ctx, start, end, limit, f.IncludeErrors)
	if err != nil {
		return nil, err
	}

	views := make([]QueryLogView, len(logs))
	ids := make([]uint, len(logs))
	for i, l := range logs {
		ids[i] = l.ID
		views[i] = QueryLogView{
			ID:        l.ID,
			Query:     l.Query,
			Response:  l.Response,
			Latency:   l.Latency,
			Success:   l.Success,
			Error:     l.Error,
			Timestamp: l.Timestamp,
			Citations: []Citation{},
		}
	}
	if !f.IncludeCitations || len(logs) == 0 {
		return views, nil
	}

	byLog, err := s.citations.ListByQueryLogIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var nodeIDs []string
	for _, docs := range byLog {
		for _, d := range docs {
			nodeIDs = append(nodeIDs, d.NodeID)
		}
	}
	chunks, err := s.chunks.FetchByIDs(ctx, nodeIDs)
	if err != nil {
		s.log.Warn("fetch cited chunk content failed", "error", err)
	}
	content := make(map[string]string, len(chunks))
	for i := range chunks {
		content[chunks[i].ID] = chunks[i].CleanContent()
	}

	for i := range views {
		for _, d := range byLog[views[i].ID] {
			views[i].Citations = append(views[i].Citations, Citation{
				FilePath: d.FilePath,
				NodeID:   d.NodeID,
				Score:    d.Score,
				Content:  content[d.NodeID],
			})
		}
	}
	return views, nil
}

// window turns an inclusive day range into a half-open time window.
func (s *AnalyticsService) window(r DateRange) (time.Time, time.Time, error) {
	start := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	if !r.Start.IsZero() {
		start = truncateDay(r.Start)
	}
	end := truncateDay(s.now())
	if !r.End.IsZero() {
		end = truncateDay(r.End)
		if end.Before(start) {
			return time.Time{}, time.Time{}, ErrInvalidDateRange
		}
	}
	return start, end.AddDate(0, 0, 1), nil
}

func limitOf(k *int) (int, error) {
	if k == nil {
		return 0, nil
	}
	if *k <= 0 {
		return 0, ErrInvalidTopK
	}
	return *k, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
