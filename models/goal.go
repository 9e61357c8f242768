package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoalCategory 目标类别
type GoalCategory string

const (
	GoalEducation GoalCategory = "EDUCATION"
	GoalEmergency GoalCategory = "EMERGENCY"
	GoalTravel    GoalCategory = "TRAVEL"
	GoalVisa      GoalCategory = "VISA"
	GoalHousing   GoalCategory = "HOUSING"
	GoalOther     GoalCategory = "OTHER"
)

// ValidGoalCategories 所有合法目标类别
var ValidGoalCategories = map[GoalCategory]bool{
	GoalEducation: true,
	GoalEmergency: true,
	GoalTravel:    true,
	GoalVisa:      true,
	GoalHousing:   true,
	GoalOther:     true,
}

// GoalStatus 目标状态
type GoalStatus string

const (
	GoalActive    GoalStatus = "ACTIVE"
	GoalCompleted GoalStatus = "COMPLETED"
	GoalArchived  GoalStatus = "ARCHIVED"
)

// Goal 储蓄目标
type Goal struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrganizationID uint            `json:"organization_id" gorm:"index;not null"`
	CreatedBy      uint            `json:"created_by" gorm:"not null"`
	AssetID        *uint           `json:"asset_id,omitempty" gorm:"index"`
	Name           string          `json:"name" gorm:"size:100;not null"`
	Category       GoalCategory    `json:"category" gorm:"size:20;not null"`
	TargetAmount   decimal.Decimal `json:"target_amount" gorm:"type:decimal(18,2);not null"`
	CurrentAmount  decimal.Decimal `json:"current_amount" gorm:"type:decimal(18,2);not null"`
	Currency       string          `json:"currency" gorm:"size:3;not null"`
	TargetDate     *time.Time      `json:"target_date"`
	Status         GoalStatus      `json:"status" gorm:"size:20;not null;index"`
	Description    string          `json:"description" gorm:"size:255"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Goal) TableName() string {
	return "goals"
}

// Progress 完成百分比（0-100）
func (g *Goal) Progress() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	p, _ := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
	if p > 100 {
		return 100
	}
	return p
}
