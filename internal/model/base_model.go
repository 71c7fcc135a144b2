package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 主键与时间戳，软删除
type BaseModel struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuditModel 操作人，由 middleware.RegisterAuditCallbacks 按请求的客户填充
type AuditModel struct {
	CreatedBy string `gorm:"size:64" json:"created_by,omitempty"`
	UpdatedBy string `gorm:"size:64" json:"updated_by,omitempty"`
}
