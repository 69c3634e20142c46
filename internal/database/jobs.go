package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("export job not found")

// JobStore 是导出任务的读写接口，API 与 Worker 通过它共享状态。
type JobStore interface {
	Create(ctx context.Context, job *ExportJob) error
	Get(ctx context.Context, id string) (*ExportJob, error)
	Complete(ctx context.Context, id, objectKey string, warnings any) error
	Fail(ctx context.Context, id string, code int, message string) error
	Delete(ctx context.Context, id string) error
}

// GormJobStore 基于 GORM 的 JobStore。
type GormJobStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ JobStore = (*GormJobStore)(nil)

func NewJobStore(db *gorm.DB) *GormJobStore {
	return &GormJobStore{db: db, now: time.Now}
}

func (s *GormJobStore) Create(ctx context.Context, job *ExportJob) error {
	if job.Status == "" {
		job.Status = ExportPending
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

func (s *GormJobStore) Get(ctx context.Context, id string) (*ExportJob, error) {
	var job ExportJob
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load export job: %w", err)
	}
	return &job, nil
}

// Complete 记录产物位置；warnings 以 JSON 保存，nil 表示无警告。
func (s *GormJobStore) Complete(ctx context.Context, id, objectKey string, warnings any) error {
	var raw datatypes.JSON
	if warnings != nil {
		encoded, err := json.Marshal(warnings)
		if err != nil {
			return fmt.Errorf("encode warnings: %w", err)
		}
		raw = datatypes.JSON(encoded)
	}
	now := s.now()
	return s.update(ctx, id, map[string]any{
		"status":       ExportCompleted,
		"object_key":   objectKey,
		"warnings":     raw,
		"completed_at": &now,
	})
}

func (s *GormJobStore) Fail(ctx context.Context, id string, code int, message string) error {
	now := s.now()
	return s.update(ctx, id, map[string]any{
		"status":        ExportFailed,
		"error_code":    code,
		"error_message": message,
		"completed_at":  &now,
	})
}

func (s *GormJobStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&ExportJob{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete export job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *GormJobStore) update(ctx context.Context, id string, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&ExportJob{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update export job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Finished 返回在 before 之前结束（completed 或 failed）的任务，按结束时间升序，最多 limit 条。
func (s *GormJobStore) Finished(ctx context.Context, before time.Time, limit int) ([]ExportJob, error) {
	if limit <= 0 {
		limit = 100
	}
	var jobs []ExportJob
	err := s.db.WithContext(ctx).
		Where("status IN ? AND completed_at < ?", []string{ExportCompleted, ExportFailed}, before).
		Order("completed_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list finished export jobs: %w", err)
	}
	return jobs, nil
}
