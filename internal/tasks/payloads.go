package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePDFExport     = "pdf:export"
	TypeExportCleanup = "export:cleanup"
)

// PDFExportPayload 携带完整的 .magicyan 文件内容，Worker 不需要读取任何服务端存储的文档。
type PDFExportPayload struct {
	JobID         string          `json:"job_id"`
	CorrelationID string          `json:"correlation_id"`
	File          json.RawMessage `json:"file"`
}

// NewPDFExportTask 构造一个导出任务；任务 ID 与导出任务 ID 一致，避免重复入队。
func NewPDFExportTask(jobID, correlationID string, file []byte) (*asynq.Task, error) {
	payload, err := json.Marshal(PDFExportPayload{
		JobID:         jobID,
		CorrelationID: correlationID,
		File:          json.RawMessage(file),
	})
	if err != nil {
		return nil, fmt.Errorf("encode pdf export payload: %w", err)
	}
	return asynq.NewTask(TypePDFExport, payload, asynq.TaskID(jobID), asynq.MaxRetry(3)), nil
}

// NewExportCleanupTask 构造定时清理过期导出产物的任务，无载荷。
func NewExportCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeExportCleanup, nil, asynq.MaxRetry(1))
}

// ParsePDFExportPayload 解析任务载荷。
func ParsePDFExportPayload(task *asynq.Task) (PDFExportPayload, error) {
	var payload PDFExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PDFExportPayload{}, fmt.Errorf("decode pdf export payload: %w", err)
	}
	if payload.JobID == "" {
		return PDFExportPayload{}, fmt.Errorf("decode pdf export payload: job_id missing")
	}
	return payload, nil
}

// ExportObjectKey 返回导出 PDF 在对象存储中的位置。
func ExportObjectKey(jobID, filename string) string {
	return fmt.Sprintf("exports/%s/%s", jobID, filename)
}

// ExportPrefix 是某个导出任务的全部产物前缀。
func ExportPrefix(jobID string) string {
	return fmt.Sprintf("exports/%s/", jobID)
}

// NotifyChannel 是导出结果通知的 Redis 频道。
func NotifyChannel(jobID string) string {
	return "export_notify:" + jobID
}
