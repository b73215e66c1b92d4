package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"supportlens/internal/app"
	"supportlens/internal/transport/http/response"
)

// writeError maps service errors onto the response envelope. Anything that is
// not a known input error is reported as a 500 with fallback as message.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidTopK):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidTopK, app.ErrInvalidTopK.Error())
	case errors.Is(err, app.ErrInvalidDateRange):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidDateRange, app.ErrInvalidDateRange.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrIngestInProgress):
		response.Error(c, http.StatusConflict, response.CodeIngestInProgress, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
