package service

import (
	"context"
	"testing"

	"globfam/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalService_Contribute(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewGoalService(db)
	ctx := context.Background()

	goal := &models.Goal{
		OrganizationID: 1,
		CreatedBy:      1,
		Name:           "Visa renewal",
		Category:       models.GoalVisa,
		TargetAmount:   decimal.NewFromInt(1000),
		CurrentAmount:  decimal.Zero,
		Currency:       "AUD",
		Status:         models.GoalActive,
	}
	require.NoError(t, db.Create(goal).Error)

	g, err := svc.Contribute(ctx, 1, goal.ID, decimal.NewFromInt(400))
	require.NoError(t, err)
	assert.Equal(t, models.GoalActive, g.Status)
	assert.InDelta(t, 40.0, g.Progress(), 0.001)

	g, err = svc.Contribute(ctx, 1, goal.ID, decimal.NewFromInt(600))
	require.NoError(t, err)
	assert.Equal(t, models.GoalCompleted, g.Status)

	var stored models.Goal
	require.NoError(t, db.First(&stored, goal.ID).Error)
	assert.Equal(t, models.GoalCompleted, stored.Status)
	assert.True(t, stored.CurrentAmount.Equal(decimal.NewFromInt(1000)))

	_, err = svc.Contribute(ctx, 1, goal.ID, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Contribute(ctx, 2, goal.ID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrGoalNotFound)

	require.NoError(t, db.Model(&stored).Update("status", models.GoalArchived).Error)
	_, err = svc.Contribute(ctx, 1, goal.ID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrGoalArchived)
}
