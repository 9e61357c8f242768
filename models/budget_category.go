package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 预算分类方向
const (
	BudgetKindIncome  = "INCOME"
	BudgetKindExpense = "EXPENSE"
)

// BudgetCategoryGroup 预算分类分组
type BudgetCategoryGroup struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	OrganizationID uint             `json:"organization_id" gorm:"index;not null"`
	Name           string           `json:"name" gorm:"size:100;not null"`
	SortOrder      int              `json:"sort_order" gorm:"default:0;index"`
	IsHidden       bool             `json:"is_hidden" gorm:"not null;default:false"`
	Categories     []BudgetCategory `json:"categories,omitempty" gorm:"foreignKey:GroupID"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `json:"-" gorm:"index"`
}

// TableName 设置表名
func (BudgetCategoryGroup) TableName() string {
	return "budget_category_groups"
}

// BudgetCategory 预算分类，名称在组织内唯一
type BudgetCategory struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrganizationID uint            `json:"organization_id" gorm:"index;not null"`
	GroupID        uint            `json:"group_id" gorm:"index;not null"`
	Name           string          `json:"name" gorm:"size:100;not null"`
	Kind           string          `json:"kind" gorm:"size:10;not null"`
	Color          string          `json:"color" gorm:"size:20"`
	MonthlyBudget  decimal.Decimal `json:"monthly_budget" gorm:"type:decimal(18,2);not null"`
	SortOrder      int             `json:"sort_order" gorm:"default:0;index"`
	IsHidden       bool            `json:"is_hidden" gorm:"not null;default:false"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}

// TableName 设置表名
func (BudgetCategory) TableName() string {
	return "budget_categories"
}
