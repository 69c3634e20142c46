package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"magicyan/internal/database"
	"magicyan/internal/storage"
	"magicyan/internal/tasks"
)

const defaultPurgeBatch = 100

// FinishedJobs 是清理需要的任务存储能力。
type FinishedJobs interface {
	Finished(ctx context.Context, before time.Time, limit int) ([]database.ExportJob, error)
	Delete(ctx context.Context, id string) error
}

// Janitor 删除超过保留期的导出任务及其 PDF 产物。
type Janitor struct {
	jobs      FinishedJobs
	storage   storage.Artifacts
	retention time.Duration
	batch     int
	logger    *slog.Logger
	now       func() time.Time
}

func NewJanitor(jobs FinishedJobs, storage storage.Artifacts, retention time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		jobs:      jobs,
		storage:   storage,
		retention: retention,
		batch:     defaultPurgeBatch,
		logger:    logger.With("component", "worker.janitor"),
		now:       time.Now,
	}
}

// ProcessTask 实现 asynq.Handler，由定时任务 export:cleanup 触发。
func (j *Janitor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != tasks.TypeExportCleanup {
		return fmt.Errorf("unexpected task type %q: %w", t.Type(), asynq.SkipRetry)
	}
	_, err := j.Purge(ctx, j.now().Add(-j.retention))
	return err
}

// Purge 分批清理在 before 之前结束的任务，返回删除的任务数。
// 产物删除失败的任务保留到下一轮，避免留下无人引用的对象。
func (j *Janitor) Purge(ctx context.Context, before time.Time) (int, error) {
	purged := 0
	for {
		batch, err := j.jobs.Finished(ctx, before, j.batch)
		if err != nil {
			return purged, err
		}

		removed := 0
		for _, job := range batch {
			if err := ctx.Err(); err != nil {
				return purged, err
			}
			if err := j.storage.DeletePrefix(ctx, tasks.ExportPrefix(job.ID)); err != nil {
				j.logger.Warn("delete export artifacts failed", slog.String("job_id", job.ID), slog.Any("error", err))
				continue
			}
			if err := j.jobs.Delete(ctx, job.ID); err != nil && !errors.Is(err, database.ErrJobNotFound) {
				j.logger.Warn("delete export job failed", slog.String("job_id", job.ID), slog.Any("error", err))
				continue
			}
			removed++
		}
		purged += removed

		if len(batch) < j.batch || removed == 0 {
			break
		}
	}

	if purged > 0 {
		j.logger.Info("expired exports purged", slog.Int("count", purged), slog.Time("before", before))
	}
	return purged, nil
}
