package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"magicyan/internal/database"
	"magicyan/internal/errcode"
	"magicyan/internal/magicyan"
	"magicyan/internal/pdf"
	"magicyan/internal/render"
	"magicyan/internal/resume"
	"magicyan/internal/storage"
	"magicyan/internal/tasks"
)

// DocumentExporter 是 Worker 使用的导出流程。
type DocumentExporter interface {
	Export(ctx context.Context, doc resume.Document) (pdf.Result, error)
}

// PDFTaskHandler 负责消费 PDF 导出任务。
type PDFTaskHandler struct {
	jobs     database.JobStore
	storage  storage.Artifacts
	notifier Notifier
	exporter DocumentExporter
	codec    *magicyan.Codec
	logger   *slog.Logger
}

// NewPDFTaskHandler 创建任务处理器。
func NewPDFTaskHandler(
	jobs database.JobStore,
	storage storage.Artifacts,
	notifier Notifier,
	exporter DocumentExporter,
	codec *magicyan.Codec,
	logger *slog.Logger,
) *PDFTaskHandler {
	return &PDFTaskHandler{
		jobs:     jobs,
		storage:  storage,
		notifier: notifier,
		exporter: exporter,
		codec:    codec,
		logger:   logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PDFTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.ParsePDFExportPayload(t)
	if err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("job_id", payload.JobID),
	)
	log.Info("starting pdf export task")

	job, err := h.jobs.Get(ctx, payload.JobID)
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			log.Warn("export job not found, skipping task")
			return nil
		}
		log.Error("query export job failed", slog.Any("error", err))
		return err
	}
	if job.Status != database.ExportPending {
		log.Info("export job already finished, skipping", slog.String("status", job.Status))
		return nil
	}

	doc, err := h.codec.Decode(payload.File)
	if err != nil {
		// 文件内容不会因重试而改变，直接判为失败。
		h.fail(ctx, log, payload, errcode.InvalidDocument, magicyan.Message(err))
		return fmt.Errorf("%w: decode export file: %v", asynq.SkipRetry, err)
	}

	defer func() {
		if retErr == nil || errors.Is(retErr, asynq.SkipRetry) {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}
		code := errcode.SystemError
		if errors.Is(retErr, pdf.ErrBrowserConnect) {
			code = errcode.RendererUnavailable
		}
		h.fail(ctx, log, payload, code, strings.TrimSpace(retErr.Error()))
	}()

	result, err := h.exporter.Export(ctx, doc)
	if err != nil {
		log.Error("export pdf failed", slog.Any("error", err))
		return err
	}

	objectKey := tasks.ExportObjectKey(job.ID, result.Filename)
	if _, err := h.storage.UploadFile(ctx, objectKey, bytes.NewReader(result.PDF), int64(len(result.PDF)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	var warnings any
	if len(result.Warnings) > 0 {
		warnings = result.Warnings
	}
	if err := h.jobs.Complete(ctx, job.ID, objectKey, warnings); err != nil {
		log.Error("update export job failed", slog.Any("error", err))
		return err
	}

	notify := ExportNotifyMessage{
		Status:        "completed",
		JobID:         job.ID,
		CorrelationID: payload.CorrelationID,
		Filename:      result.Filename,
		ErrorCode:     errcode.OK,
	}
	if code, message, missing := summarizeWarnings(result.Warnings); code != errcode.OK {
		notify.ErrorCode = code
		notify.ErrorMessage = message
		notify.MissingKeys = missing
		log.Warn("pdf exported with missing resources",
			slog.Int("missing_count", len(missing)),
			slog.Any("missing_keys", missing),
		)
	}
	if err := h.notifier.Notify(ctx, notify); err != nil {
		// 结果已落库，客户端可以轮询状态接口，不必重试整个任务。
		log.Error("publish export notification failed", slog.Any("error", err))
	}

	log.Info("pdf export task completed", slog.String("object_key", objectKey))
	return nil
}

func (h *PDFTaskHandler) fail(ctx context.Context, log *slog.Logger, payload tasks.PDFExportPayload, code int, message string) {
	if err := h.jobs.Fail(ctx, payload.JobID, code, message); err != nil {
		log.Error("mark export job failed", slog.Any("error", err))
	}
	notify := ExportNotifyMessage{
		Status:        "error",
		JobID:         payload.JobID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     code,
		ErrorMessage:  message,
	}
	if err := h.notifier.Notify(ctx, notify); err != nil {
		log.Error("publish export error notification failed", slog.Any("error", err))
	}
}

// summarizeWarnings 合并所有 ResourceMissing 警告的缺失项（去重）。
func summarizeWarnings(warnings []render.Warning) (int, string, []string) {
	var (
		messages []string
		missing  []string
		seen     = map[string]struct{}{}
	)
	for _, w := range warnings {
		if w.Code != errcode.ResourceMissing {
			continue
		}
		messages = append(messages, w.Message)
		for _, key := range w.Missing {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			missing = append(missing, key)
		}
	}
	if len(messages) == 0 {
		return errcode.OK, "", nil
	}
	return errcode.ResourceMissing, strings.Join(messages, "；"), missing
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
