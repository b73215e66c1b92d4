package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeInvalidTopK        = 40001
	CodeInvalidDateRange   = 40002
	CodeUnauthorized       = 40100
	CodeNotFound           = 40400
	CodeIngestInProgress   = 40900
	CodeInternalServer     = 50000
	CodeServiceUnavailable = 50300
)

// APIResponse is the envelope of every API reply. Data is omitted on errors.
type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
