package app

import (
	"context"
	"time"

	"supportlens/internal/model"
	"supportlens/internal/platform/logger"
)

// RecordWriteTimeout bounds the log and citation writes of one attempt. The
// writes outlive the caller's context so a cancelled or expired request is
// still logged as a failure.
const RecordWriteTimeout = 5 * time.Second

// QueryRecorder writes the single QueryLog of a search or answer attempt and,
// when the attempt succeeded, hands its citations to the sink. Neither write
// returns an error to the caller; failures are logged.
type QueryRecorder struct {
	logs      QueryLogWriter
	citations CitationSink
	log       *logger.Logger
}

func NewQueryRecorder(logs QueryLogWriter, citations CitationSink, log *logger.Logger) *QueryRecorder {
	if log == nil {
		log = logger.NewNop()
	}
	return &QueryRecorder{
		logs:      logs,
		citations: citations,
		log:       log.With("component", "query_recorder"),
	}
}

// Record logs one attempt. attemptErr nil means success. The returned entry
// is nil when the log write failed, in which case no citations are written.
func (r *QueryRecorder) Record(
	ctx context.Context,
	query string,
	response *string,
	latency time.Duration,
	attemptErr error,
	citations []model.CitedDocument,
) *model.QueryLog {
	entry := &model.QueryLog{
		Query:     query,
		Response:  response,
		Latency:   latency.Seconds(),
		Success:   attemptErr == nil,
		Timestamp: time.Now().UTC(),
	}
	if attemptErr != nil {
		msg := attemptErr.Error()
		entry.Error = &msg
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RecordWriteTimeout)
	defer cancel()

	if err := r.logs.Create(wctx, entry); err != nil {
		r.log.Error("write query log failed", "error", err, "success", entry.Success)
		return nil
	}

	if entry.Success && len(citations) > 0 && r.citations != nil {
		if err := r.citations.Persist(wctx, entry.ID, citations); err != nil {
			r.log.Error("persist citations failed", "error", err, "query_log_id", entry.ID, "count", len(citations))
		}
	}
	return entry
}
