package api

import (
	"globfam/database"
	"globfam/middleware"
	"globfam/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DashboardHandler 仪表盘
type DashboardHandler struct{}

// NewDashboardHandler 创建仪表盘处理器
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// CurrencyTotals 单币种月度收支
type CurrencyTotals struct {
	Income  decimal.Decimal `json:"income" swaggertype:"string"`
	Expense decimal.Decimal `json:"expense" swaggertype:"string"`
	Net     decimal.Decimal `json:"net" swaggertype:"string"`
}

// DashboardSummary 仪表盘汇总，金额按币种分别统计，不做汇率换算
type DashboardSummary struct {
	Month              string                     `json:"month"`
	NetWorth           map[string]decimal.Decimal `json:"net_worth" swaggertype:"object,string"`
	AssetCount         int                        `json:"asset_count"`
	MonthTotals        map[string]CurrencyTotals  `json:"month_totals"`
	ActiveGoals        int64                      `json:"active_goals"`
	RecentTransactions []models.Transaction       `json:"recent_transactions"`
}

type currencyTypeTotal struct {
	Currency string
	Type     string
	Total    decimal.Decimal
}

// Summary 仪表盘汇总
// @Summary 仪表盘汇总
// @Description 按币种返回净资产（负债取负）、启用资产数量与指定月份的收入/支出
// @Tags 仪表盘
// @Produce json
// @Security BearerAuth
// @Param month query string false "月份 (2024-03)，默认当月"
// @Success 200 {object} Response{data=DashboardSummary} "获取成功"
// @Failure 400 {object} Response "月份格式错误"
// @Router /api/dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	month, start, end, err := parseMonth(c.Query("month"))
	if err != nil {
		FieldErrors(c, map[string]string{"month": "must be in the format 2006-01"})
		return
	}
	orgID := middleware.GetCurrentOrgID(c)

	var assets []models.Asset
	if err := database.DB.Where("organization_id = ? AND is_active = ?", orgID, true).Find(&assets).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load assets"))
		return
	}
	netWorth := make(map[string]decimal.Decimal)
	for i := range assets {
		a := &assets[i]
		balance := a.Balance
		if a.IsLiability() {
			balance = balance.Abs().Neg()
		}
		netWorth[a.Currency] = netWorth[a.Currency].Add(balance)
	}

	var rows []currencyTypeTotal
	if err := database.DB.Model(&models.Transaction{}).
		Select("currency, type, SUM(amount) AS total").
		Where("organization_id = ? AND date >= ? AND date < ? AND type IN ?", orgID, start, end,
			[]string{string(models.TransactionIncome), string(models.TransactionExpense)}).
		Group("currency, type").
		Scan(&rows).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to sum transactions"))
		return
	}
	totals := make(map[string]CurrencyTotals)
	for _, r := range rows {
		t := totals[r.Currency]
		amount := r.Total.Round(2)
		if r.Type == string(models.TransactionIncome) {
			t.Income = t.Income.Add(amount)
		} else {
			t.Expense = t.Expense.Add(amount)
		}
		t.Net = t.Income.Sub(t.Expense)
		totals[r.Currency] = t
	}

	var activeGoals int64
	if err := database.DB.Model(&models.Goal{}).
		Where("organization_id = ? AND status = ?", orgID, models.GoalActive).
		Count(&activeGoals).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to count goals"))
		return
	}

	var recent []models.Transaction
	if err := database.DB.Where("organization_id = ?", orgID).
		Order("date DESC, id DESC").Limit(5).Find(&recent).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load recent transactions"))
		return
	}

	Success(c, DashboardSummary{
		Month:              month,
		NetWorth:           netWorth,
		AssetCount:         len(assets),
		MonthTotals:        totals,
		ActiveGoals:        activeGoals,
		RecentTransactions: recent,
	})
}
