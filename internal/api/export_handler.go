package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"magicyan/internal/api/middleware"
	"magicyan/internal/database"
	"magicyan/internal/errcode"
	"magicyan/internal/magicyan"
	"magicyan/internal/resume"
	"magicyan/internal/storage"
	"magicyan/internal/tasks"
)

const downloadLinkTTL = 15 * time.Minute

// Enqueuer 是 asynq.Client 的子集。
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportHandler 负责异步 PDF 导出任务的创建、查询与清理。
type ExportHandler struct {
	jobs    database.JobStore
	queue   Enqueuer
	storage storage.Artifacts
	codec   *magicyan.Codec
	now     func() time.Time
}

func NewExportHandler(jobs database.JobStore, queue Enqueuer, storage storage.Artifacts, codec *magicyan.Codec) *ExportHandler {
	return &ExportHandler{
		jobs:    jobs,
		queue:   queue,
		storage: storage,
		codec:   codec,
		now:     time.Now,
	}
}

type exportStatusResponse struct {
	JobID        string          `json:"job_id"`
	Status       string          `json:"status"`
	Title        string          `json:"title"`
	Filename     string          `json:"filename,omitempty"`
	URL          string          `json:"url,omitempty"`
	ErrorCode    int             `json:"error_code"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Warnings     json.RawMessage `json:"warnings,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Create 校验文档后登记导出任务并入队，立即返回 202。
func (h *ExportHandler) Create(c *gin.Context) {
	var doc resume.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}

	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	content, err := h.codec.Encode(doc)
	if err != nil {
		log.Error("encode export document", slog.Any("error", err))
		Internal(c, "failed to encode document")
		return
	}
	// Worker 会用同一套规则解码，这里提前拒绝结构不合法的文档。
	if _, err := h.codec.Decode(content); err != nil {
		DecodeFailed(c, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	job := &database.ExportJob{
		ID:            uuid.NewString(),
		Title:         doc.Title,
		Filename:      magicyan.PDFFilename(doc.Title, h.now()),
		Status:        database.ExportPending,
		CorrelationID: correlationID,
	}
	if err := h.jobs.Create(ctx, job); err != nil {
		log.Error("create export job", slog.Any("error", err))
		Internal(c, "failed to create export job")
		return
	}

	task, err := tasks.NewPDFExportTask(job.ID, correlationID, content)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}
	if _, err := h.queue.EnqueueContext(ctx, task); err != nil {
		log.Error("enqueue pdf export", slog.String("job_id", job.ID), slog.Any("error", err))
		_ = h.jobs.Fail(ctx, job.ID, errcode.SystemError, "failed to enqueue pdf export")
		Internal(c, "failed to enqueue pdf export")
		return
	}

	log.Info("pdf export enqueued", slog.String("job_id", job.ID))
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":   job.ID,
		"status":   job.Status,
		"filename": job.Filename,
	})
}

// Status 返回任务状态；完成的任务附带限时下载链接，产物已被清理时返回 410。
func (h *ExportHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	job, err := h.jobs.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			NotFound(c, "export job not found")
			return
		}
		Internal(c, "failed to query export job")
		return
	}

	resp := exportStatusResponse{
		JobID:        job.ID,
		Status:       job.Status,
		Title:        job.Title,
		Filename:     job.Filename,
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
	}
	if len(job.Warnings) > 0 {
		resp.Warnings = json.RawMessage(job.Warnings)
	}

	if job.Status == database.ExportCompleted {
		if _, err := h.storage.StatObject(ctx, job.ObjectKey); err != nil {
			if storage.IsNoSuchKey(err) {
				Gone(c, "export file no longer available")
				return
			}
			middleware.LoggerFromContext(c).Error("stat export object", slog.Any("error", err))
			Internal(c, "failed to query export file")
			return
		}

		resp.Filename = path.Base(job.ObjectKey)
		url, err := h.storage.GeneratePresignedURLWithParams(ctx, job.ObjectKey, downloadLinkTTL, map[string]string{
			"response-content-disposition": attachment(resp.Filename),
			"response-content-type":        "application/pdf",
		})
		if err != nil {
			middleware.LoggerFromContext(c).Error("generate presigned url", slog.Any("error", err))
			Internal(c, "failed to generate url")
			return
		}
		resp.URL = url
	}

	c.JSON(http.StatusOK, resp)
}

// Delete 删除任务产物与记录。
func (h *ExportHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := h.jobs.Get(ctx, id); err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			NotFound(c, "export job not found")
			return
		}
		Internal(c, "failed to query export job")
		return
	}

	if err := h.storage.DeletePrefix(ctx, tasks.ExportPrefix(id)); err != nil {
		middleware.LoggerFromContext(c).Error("delete export objects", slog.Any("error", err))
		Internal(c, "failed to delete export file")
		return
	}
	if err := h.jobs.Delete(ctx, id); err != nil && !errors.Is(err, database.ErrJobNotFound) {
		Internal(c, "failed to delete export job")
		return
	}

	c.Status(http.StatusNoContent)
}
