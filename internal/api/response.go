package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"magicyan/internal/magicyan"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func BadRequest(c *gin.Context, msg string)      { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)        { Error(c, http.StatusNotFound, msg) }
func Gone(c *gin.Context, msg string)            { Error(c, http.StatusGone, msg) }
func TooManyRequests(c *gin.Context, msg string) { Error(c, http.StatusTooManyRequests, msg) }
func Internal(c *gin.Context, msg string)        { Error(c, http.StatusInternalServerError, msg) }

// DecodeFailed 以 422 返回文件解析失败的类别与违规明细。
func DecodeFailed(c *gin.Context, err error) {
	body := gin.H{
		"error": magicyan.Message(err),
		"kind":  magicyan.Kind(err),
	}
	if details := magicyan.Details(err); len(details) > 0 {
		body["details"] = details
	}
	c.JSON(http.StatusUnprocessableEntity, body)
}
