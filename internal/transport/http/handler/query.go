package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"supportlens/internal/app"
	"supportlens/internal/transport/http/response"
)

type QuestionAnswerer interface {
	Answer(ctx context.Context, query string) (*app.GeneratedAnswer, error)
	AnswerStream(ctx context.Context, query string, onChunk func(chunk string) error) (*app.GeneratedAnswer, error)
}

type QueryHandler struct {
	answerer QuestionAnswerer
}

type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

func NewQueryHandler(answerer QuestionAnswerer) *QueryHandler {
	return &QueryHandler{answerer: answerer}
}

// Query answers with citations. A degraded answer still returns 200 and
// carries the generation error in its body.
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.answerer.Answer(c.Request.Context(), req.Query)
	if err != nil {
		writeError(c, err, "answer query failed")
		return
	}
	response.OK(c, answer)
}

// Stream answers over server-sent events: one data event per delta, then
// "done" carrying the full answer with citations, or "error".
func (h *QueryHandler) Stream(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeEvent := func(event, data string) error {
		var b strings.Builder
		if event != "" {
			fmt.Fprintf(&b, "event: %s\n", event)
		}
		fmt.Fprintf(&b, "data: %s\n\n", sanitizeSSE(data))
		if _, err := c.Writer.Write([]byte(b.String())); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	answer, err := h.answerer.AnswerStream(c.Request.Context(), req.Query, func(chunk string) error {
		return writeEvent("", chunk)
	})
	if err != nil {
		_ = writeEvent("error", err.Error())
		return
	}
	if answer.Error != "" {
		_ = writeEvent("error", answer.Error)
		return
	}
	payload, err := json.Marshal(answer)
	if err != nil {
		_ = writeEvent("error", "encode answer failed")
		return
	}
	_ = writeEvent("done", string(payload))
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	return strings.ReplaceAll(replaced, "\n", "\\n")
}
