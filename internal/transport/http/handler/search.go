package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"supportlens/internal/app"
	"supportlens/internal/transport/http/response"
)

type DocumentSearcher interface {
	Search(ctx context.Context, query string, k int) ([]app.SearchResult, error)
}

type SearchHandler struct {
	searcher    DocumentSearcher
	defaultTopK int
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	K     *int   `json:"k"`
}

func NewSearchHandler(searcher DocumentSearcher, defaultTopK int) *SearchHandler {
	if defaultTopK <= 0 {
		defaultTopK = app.DefaultTopK
	}
	return &SearchHandler{searcher: searcher, defaultTopK: defaultTopK}
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	k := h.defaultTopK
	if req.K != nil {
		k = *req.K
	}

	results, err := h.searcher.Search(c.Request.Context(), req.Query, k)
	if err != nil {
		writeError(c, err, "search documents failed")
		return
	}
	if len(results) == 0 {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "No similar documents found")
		return
	}
	response.OK(c, results)
}
