package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"magicyan/internal/api/middleware"
)

var errUploadTooLarge = errors.New("upload too large")

// readUpload 读取 multipart 的 file 字段；非 multipart 请求直接读取请求体。
func readUpload(c *gin.Context, maxBytes int64) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)

	var (
		reader      io.Reader = c.Request.Body
		contentType           = c.ContentType()
	)
	if strings.HasPrefix(contentType, "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			if isTooLarge(err) {
				return nil, "", errUploadTooLarge
			}
			return nil, "", fmt.Errorf("missing file: %w", err)
		}
		if header.Size > maxBytes {
			return nil, "", errUploadTooLarge
		}
		file, err := header.Open()
		if err != nil {
			return nil, "", fmt.Errorf("open file: %w", err)
		}
		defer file.Close()
		reader = file
		contentType = header.Header.Get("Content-Type")
	}

	content, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		if isTooLarge(err) {
			return nil, "", errUploadTooLarge
		}
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > maxBytes {
		return nil, "", errUploadTooLarge
	}
	return content, contentType, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func uploadError(c *gin.Context, err error) {
	if errors.Is(err, errUploadTooLarge) {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	BadRequest(c, "missing file")
}

// scanUpload 返回 false 时已写入响应。
func scanUpload(c *gin.Context, scanner Scanner, content []byte) bool {
	if scanner == nil {
		return true
	}
	if err := scanner.Scan(content); err != nil {
		if errors.Is(err, ErrMalicious) {
			BadRequest(c, "malicious file detected")
			return false
		}
		middleware.LoggerFromContext(c).Error("scan file", slog.Any("error", err))
		Internal(c, "failed to scan file")
		return false
	}
	return true
}
