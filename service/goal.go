package service

import (
	"context"
	"errors"
	"fmt"

	"globfam/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrGoalNotFound 目标不存在或不属于当前组织
	ErrGoalNotFound = errors.New("goal not found")
	// ErrGoalArchived 已归档目标不接受存入
	ErrGoalArchived = errors.New("goal is archived")
)

// GoalService 储蓄目标存入
type GoalService struct {
	db *gorm.DB
}

// NewGoalService 创建目标服务
func NewGoalService(db *gorm.DB) *GoalService {
	return &GoalService{db: db}
}

// Contribute 增加目标当前金额，达到目标金额时标记为 COMPLETED
func (s *GoalService) Contribute(ctx context.Context, orgID, goalID uint, amount decimal.Decimal) (*models.Goal, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var goal models.Goal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND organization_id = ?", goalID, orgID).
			First(&goal).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGoalNotFound
		}
		if err != nil {
			return fmt.Errorf("load goal: %w", err)
		}
		if goal.Status == models.GoalArchived {
			return ErrGoalArchived
		}

		goal.CurrentAmount = goal.CurrentAmount.Add(amount)
		if goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount) {
			goal.Status = models.GoalCompleted
		}
		return tx.Model(&goal).Updates(map[string]interface{}{
			"current_amount": goal.CurrentAmount,
			"status":         goal.Status,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &goal, nil
}
