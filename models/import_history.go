package models

import (
	"time"

	"gorm.io/gorm"
)

// ImportStatus 导入状态：processing → completed | failed
type ImportStatus string

const (
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

// RowError 单行导入错误，Row 为数据行序号（从 1 开始，不含表头）
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportHistory 每次上传文件一条记录
type ImportHistory struct {
	ID             uint              `json:"id" gorm:"primaryKey"`
	BatchID        string            `json:"batch_id" gorm:"size:36;uniqueIndex;not null"`
	OrganizationID uint              `json:"organization_id" gorm:"index;not null"`
	UserID         uint              `json:"user_id" gorm:"index;not null"`
	AssetID        uint              `json:"asset_id" gorm:"index;not null"`
	FileName       string            `json:"file_name" gorm:"size:255;not null"`
	FileType       string            `json:"file_type" gorm:"size:10;not null"`
	FileSize       int64             `json:"file_size"`
	StorageURI     string            `json:"storage_uri" gorm:"size:500"`
	Status         ImportStatus      `json:"status" gorm:"size:20;not null;index"`
	Mapping        map[string]string `json:"mapping" gorm:"serializer:json;type:text"`
	SkipDuplicates bool              `json:"skip_duplicates"`
	TotalRows      int               `json:"total_rows"`
	SuccessRows    int               `json:"success_rows"`
	FailedRows     int               `json:"failed_rows"`
	DuplicateRows  int               `json:"duplicate_rows"`
	Errors         []RowError        `json:"errors" gorm:"serializer:json;type:text"`
	Message        string            `json:"message" gorm:"size:500"`
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      gorm.DeletedAt    `json:"-" gorm:"index"`
}

// TableName 设置表名
func (ImportHistory) TableName() string {
	return "import_histories"
}
