package handler

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"supportlens/internal/app"
	"supportlens/internal/transport/http/response"
)

type DocumentIngester interface {
	UploadAndIngest(ctx context.Context, uploads []app.Upload) (*app.IngestResult, error)
}

type DocumentHandler struct {
	ingester DocumentIngester
}

func NewDocumentHandler(ingester DocumentIngester) *DocumentHandler {
	return &DocumentHandler{ingester: ingester}
}

// Upload stages the multipart "files" field and ingests the staging directory.
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files uploaded")
		return
	}

	uploads := make([]app.Upload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, app.Upload{Name: fh.Filename, Content: f})
	}

	result, err := h.ingester.UploadAndIngest(c.Request.Context(), uploads)
	if err != nil {
		writeError(c, err, "ingest documents failed")
		return
	}
	response.OK(c, result)
}
