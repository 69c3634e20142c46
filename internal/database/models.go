package database

import (
	"time"

	"gorm.io/datatypes"
)

// 导出任务状态。
const (
	ExportPending   = "pending"
	ExportCompleted = "completed"
	ExportFailed    = "failed"
)

// ExportJob 记录一次异步 PDF 导出的状态与产物位置。
// 只保存任务簿记信息，简历文档本身不落库。
type ExportJob struct {
	ID            string `gorm:"primaryKey;size:36"`
	Title         string `gorm:"size:255"`
	Filename      string `gorm:"size:255"`
	Status        string `gorm:"size:32;index"`
	ObjectKey     string `gorm:"size:512"`
	CorrelationID string `gorm:"size:64"`
	ErrorCode     int
	ErrorMessage  string         `gorm:"size:1024"`
	Warnings      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}
