package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization 租户（家庭），拥有成员、资产、交易、目标与预算分类
type Organization struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"size:100;not null"`
	BaseCurrency string         `json:"base_currency" gorm:"size:3;not null"`
	Country      string         `json:"country" gorm:"size:2"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Organization) TableName() string {
	return "organizations"
}
