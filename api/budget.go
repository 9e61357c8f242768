package api

import (
	"strings"
	"time"

	"globfam/database"
	"globfam/middleware"
	"globfam/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetHandler 预算分类与预算汇总
type BudgetHandler struct{}

// NewBudgetHandler 创建预算处理器
func NewBudgetHandler() *BudgetHandler {
	return &BudgetHandler{}
}

// GroupRequest 创建/更新分组请求
type GroupRequest struct {
	Name      string `json:"name" binding:"required,max=100" example:"Living"`
	SortOrder int    `json:"sort_order"`
	IsHidden  bool   `json:"is_hidden"`
}

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	GroupID       uint            `json:"group_id" binding:"required"`
	Name          string          `json:"name" binding:"required,max=100" example:"Groceries"`
	Kind          string          `json:"kind" binding:"required,oneof=INCOME EXPENSE" example:"EXPENSE"`
	Color         string          `json:"color" binding:"omitempty,max=20" example:"#f97316"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget" swaggertype:"string" example:"600.00"`
	SortOrder     int             `json:"sort_order"`
	IsHidden      bool            `json:"is_hidden"`
}

// UpdateCategoryRequest 更新分类请求
type UpdateCategoryRequest struct {
	GroupID       *uint            `json:"group_id"`
	Name          *string          `json:"name" binding:"omitempty,min=1,max=100"`
	Kind          *string          `json:"kind" binding:"omitempty,oneof=INCOME EXPENSE"`
	Color         *string          `json:"color" binding:"omitempty,max=20"`
	MonthlyBudget *decimal.Decimal `json:"monthly_budget" swaggertype:"string"`
	SortOrder     *int             `json:"sort_order"`
	IsHidden      *bool            `json:"is_hidden"`
}

// ReorderItem 单个分类的新位置
type ReorderItem struct {
	ID        uint  `json:"id" binding:"required"`
	GroupID   *uint `json:"group_id"`
	SortOrder int   `json:"sort_order"`
}

// ReorderRequest 分类排序请求
type ReorderRequest struct {
	Items []ReorderItem `json:"items" binding:"required,min=1,dive"`
}

// BudgetLine 单个分类的预算与实际
type BudgetLine struct {
	CategoryID  uint            `json:"category_id"`
	Name        string          `json:"name"`
	GroupID     uint            `json:"group_id"`
	GroupName   string          `json:"group_name"`
	Kind        string          `json:"kind"`
	Budget      decimal.Decimal `json:"budget" swaggertype:"string"`
	Actual      decimal.Decimal `json:"actual" swaggertype:"string"`
	Remaining   decimal.Decimal `json:"remaining" swaggertype:"string"`
	PercentUsed float64         `json:"percent_used"`
}

// BudgetSummary 月度预算汇总
type BudgetSummary struct {
	Month         string          `json:"month"`
	Lines         []BudgetLine    `json:"lines"`
	TotalBudget   decimal.Decimal `json:"total_budget" swaggertype:"string"`
	TotalExpense  decimal.Decimal `json:"total_expense" swaggertype:"string"`
	TotalIncome   decimal.Decimal `json:"total_income" swaggertype:"string"`
	Uncategorized decimal.Decimal `json:"uncategorized_expense" swaggertype:"string"`
}

// ListCategories 分组及其分类
// @Summary 预算分类列表
// @Description 按 sort_order 返回分组及其分类
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param include_hidden query bool false "包含隐藏的分组与分类"
// @Success 200 {object} Response{data=[]models.BudgetCategoryGroup} "获取成功"
// @Router /api/budget-categories [get]
func (h *BudgetHandler) ListCategories(c *gin.Context) {
	includeHidden := c.Query("include_hidden") == "true"
	orgID := middleware.GetCurrentOrgID(c)

	query := database.DB.Where("organization_id = ?", orgID).
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			if !includeHidden {
				db = db.Where("is_hidden = ?", false)
			}
			return db.Order("sort_order ASC, id ASC")
		})
	if !includeHidden {
		query = query.Where("is_hidden = ?", false)
	}

	var groups []models.BudgetCategoryGroup
	if err := query.Order("sort_order ASC, id ASC").Find(&groups).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to list budget categories"))
		return
	}
	Success(c, groups)
}

// categoryNameTaken 分类名称在组织内唯一
func categoryNameTaken(orgID uint, name string, excludeID uint) (bool, error) {
	var count int64
	q := database.DB.Model(&models.BudgetCategory{}).Where("organization_id = ? AND LOWER(name) = ?", orgID, strings.ToLower(name))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func groupExists(orgID, groupID uint) (bool, error) {
	var count int64
	err := database.DB.Model(&models.BudgetCategoryGroup{}).Where("id = ? AND organization_id = ?", groupID, orgID).Count(&count).Error
	return count > 0, err
}

// CreateCategory 创建分类
// @Summary 创建预算分类
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCategoryRequest true "分类信息"
// @Success 201 {object} Response{data=models.BudgetCategory} "创建成功"
// @Failure 404 {object} Response "分组不存在"
// @Failure 409 {object} Response "分类名称已存在"
// @Router /api/budget-categories [post]
func (h *BudgetHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.MonthlyBudget.IsNegative() {
		FieldErrors(c, map[string]string{"monthly_budget": "must not be negative"})
		return
	}

	orgID := middleware.GetCurrentOrgID(c)
	ok, err := groupExists(orgID, req.GroupID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load group"))
		return
	}
	if !ok {
		NotFound(c, "category group not found")
		return
	}
	taken, err := categoryNameTaken(orgID, req.Name, 0)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to check category name"))
		return
	}
	if taken {
		Conflict(c, "category name already exists")
		return
	}

	cat := models.BudgetCategory{
		OrganizationID: orgID,
		GroupID:        req.GroupID,
		Name:           req.Name,
		Kind:           req.Kind,
		Color:          req.Color,
		MonthlyBudget:  req.MonthlyBudget.Round(2),
		SortOrder:      req.SortOrder,
		IsHidden:       req.IsHidden,
	}
	if cat.Color == "" {
		cat.Color = "#64748b"
	}
	if err := database.DB.Create(&cat).Error; err != nil {
		HandleError(c, err, "failed to create category")
		return
	}
	Created(c, "category created", cat)
}

// UpdateCategory 更新分类
// @Summary 更新预算分类
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Param request body UpdateCategoryRequest true "分类信息"
// @Success 200 {object} Response{data=models.BudgetCategory} "更新成功"
// @Failure 404 {object} Response "分类不存在"
// @Failure 409 {object} Response "分类名称已存在"
// @Router /api/budget-categories/{id} [put]
func (h *BudgetHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	orgID := middleware.GetCurrentOrgID(c)
	var cat models.BudgetCategory
	if err := database.DB.Where("id = ? AND organization_id = ?", id, orgID).First(&cat).Error; err != nil {
		HandleError(c, err, "failed to load category")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			FieldErrors(c, map[string]string{"name": "is required"})
			return
		}
		taken, err := categoryNameTaken(orgID, name, cat.ID)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "failed to check category name"))
			return
		}
		if taken {
			Conflict(c, "category name already exists")
			return
		}
		updates["name"] = name
	}
	if req.GroupID != nil {
		exists, err := groupExists(orgID, *req.GroupID)
		if err != nil {
			InternalError(c, SafeErrorMessage(err, "failed to load group"))
			return
		}
		if !exists {
			NotFound(c, "category group not found")
			return
		}
		updates["group_id"] = *req.GroupID
	}
	if req.Kind != nil {
		updates["kind"] = *req.Kind
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.MonthlyBudget != nil {
		if req.MonthlyBudget.IsNegative() {
			FieldErrors(c, map[string]string{"monthly_budget": "must not be negative"})
			return
		}
		updates["monthly_budget"] = req.MonthlyBudget.Round(2)
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsHidden != nil {
		updates["is_hidden"] = *req.IsHidden
	}
	if len(updates) > 0 {
		if err := database.DB.Model(&cat).Updates(updates).Error; err != nil {
			HandleError(c, err, "failed to update category")
			return
		}
	}
	SuccessWithMessage(c, "category updated", cat)
}

// DeleteCategory 删除分类，已有交易的分类名称保留在交易上
// @Summary 删除预算分类
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "分类ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "分类不存在"
// @Router /api/budget-categories/{id} [delete]
func (h *BudgetHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result := database.DB.Where("id = ? AND organization_id = ?", id, middleware.GetCurrentOrgID(c)).Delete(&models.BudgetCategory{})
	if result.Error != nil {
		InternalError(c, SafeErrorMessage(result.Error, "failed to delete category"))
		return
	}
	if result.RowsAffected == 0 {
		NotFound(c, "category not found")
		return
	}
	SuccessWithMessage(c, "category deleted", nil)
}

// Reorder 批量设置分类排序
// @Summary 预算分类排序
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReorderRequest true "排序信息"
// @Success 200 {object} Response "排序成功"
// @Failure 404 {object} Response "分类或分组不存在"
// @Router /api/budget-categories/reorder [put]
func (h *BudgetHandler) Reorder(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	orgID := middleware.GetCurrentOrgID(c)

	err := database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, item := range req.Items {
			updates := map[string]interface{}{"sort_order": item.SortOrder}
			if item.GroupID != nil {
				var count int64
				if err := tx.Model(&models.BudgetCategoryGroup{}).
					Where("id = ? AND organization_id = ?", *item.GroupID, orgID).
					Count(&count).Error; err != nil {
					return err
				}
				if count == 0 {
					return gorm.ErrRecordNotFound
				}
				updates["group_id"] = *item.GroupID
			}
			result := tx.Model(&models.BudgetCategory{}).
				Where("id = ? AND organization_id = ?", item.ID, orgID).
				Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
	if err != nil {
		HandleError(c, err, "failed to reorder categories")
		return
	}
	SuccessWithMessage(c, "categories reordered", nil)
}

// ListGroups 分组列表
// @Summary 预算分组列表
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.BudgetCategoryGroup} "获取成功"
// @Router /api/budget-category-groups [get]
func (h *BudgetHandler) ListGroups(c *gin.Context) {
	var groups []models.BudgetCategoryGroup
	if err := database.DB.Where("organization_id = ?", middleware.GetCurrentOrgID(c)).
		Order("sort_order ASC, id ASC").Find(&groups).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to list groups"))
		return
	}
	Success(c, groups)
}

// CreateGroup 创建分组
// @Summary 创建预算分组
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GroupRequest true "分组信息"
// @Success 201 {object} Response{data=models.BudgetCategoryGroup} "创建成功"
// @Router /api/budget-category-groups [post]
func (h *BudgetHandler) CreateGroup(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	group := models.BudgetCategoryGroup{
		OrganizationID: middleware.GetCurrentOrgID(c),
		Name:           strings.TrimSpace(req.Name),
		SortOrder:      req.SortOrder,
		IsHidden:       req.IsHidden,
	}
	if err := database.DB.Create(&group).Error; err != nil {
		HandleError(c, err, "failed to create group")
		return
	}
	Created(c, "group created", group)
}

// UpdateGroup 更新分组
// @Summary 更新预算分组
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分组ID"
// @Param request body GroupRequest true "分组信息"
// @Success 200 {object} Response{data=models.BudgetCategoryGroup} "更新成功"
// @Failure 404 {object} Response "分组不存在"
// @Router /api/budget-category-groups/{id} [put]
func (h *BudgetHandler) UpdateGroup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	var group models.BudgetCategoryGroup
	if err := database.DB.Where("id = ? AND organization_id = ?", id, middleware.GetCurrentOrgID(c)).First(&group).Error; err != nil {
		HandleError(c, err, "failed to load group")
		return
	}
	if err := database.DB.Model(&group).Updates(map[string]interface{}{
		"name":       strings.TrimSpace(req.Name),
		"sort_order": req.SortOrder,
		"is_hidden":  req.IsHidden,
	}).Error; err != nil {
		HandleError(c, err, "failed to update group")
		return
	}
	SuccessWithMessage(c, "group updated", group)
}

// DeleteGroup 删除分组，分组下仍有分类时拒绝
// @Summary 删除预算分组
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "分组ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "分组不存在"
// @Failure 409 {object} Response "分组下仍有分类"
// @Router /api/budget-category-groups/{id} [delete]
func (h *BudgetHandler) DeleteGroup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	orgID := middleware.GetCurrentOrgID(c)
	var group models.BudgetCategoryGroup
	if err := database.DB.Where("id = ? AND organization_id = ?", id, orgID).First(&group).Error; err != nil {
		HandleError(c, err, "failed to load group")
		return
	}
	var count int64
	if err := database.DB.Model(&models.BudgetCategory{}).Where("group_id = ? AND organization_id = ?", group.ID, orgID).Count(&count).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to count categories"))
		return
	}
	if count > 0 {
		Conflict(c, "group still has categories")
		return
	}
	if err := database.DB.Delete(&group).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to delete group"))
		return
	}
	SuccessWithMessage(c, "group deleted", nil)
}

// parseMonth 解析 YYYY-MM，为空时取当前 UTC 月份，返回 [start, end)
func parseMonth(s string) (string, time.Time, time.Time, error) {
	var start time.Time
	if s == "" {
		now := time.Now().UTC()
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		t, err := time.ParseInLocation("2006-01", s, time.UTC)
		if err != nil {
			return "", time.Time{}, time.Time{}, err
		}
		start = t
	}
	return start.Format("2006-01"), start, start.AddDate(0, 1, 0), nil
}

type categoryTotal struct {
	Category string
	Type     string
	Total    decimal.Decimal
}

// monthTotals 按分类与类型汇总某月交易金额（不含转账）
func monthTotals(db *gorm.DB, orgID uint, start, end time.Time) ([]categoryTotal, error) {
	var rows []categoryTotal
	err := db.Model(&models.Transaction{}).
		Select("category, type, SUM(amount) AS total").
		Where("organization_id = ? AND date >= ? AND date < ? AND type IN ?", orgID, start, end,
			[]string{string(models.TransactionIncome), string(models.TransactionExpense)}).
		Group("category, type").
		Scan(&rows).Error
	for i := range rows {
		rows[i].Total = rows[i].Total.Round(2)
	}
	return rows, err
}

// Summary 月度预算与实际对比
// @Summary 预算汇总
// @Description 返回每个未隐藏分类的月度预算、实际发生额与剩余额度，金额不做币种换算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param month query string false "月份 (2024-03)，默认当月"
// @Success 200 {object} Response{data=BudgetSummary} "获取成功"
// @Failure 400 {object} Response "月份格式错误"
// @Router /api/budgets/summary [get]
func (h *BudgetHandler) Summary(c *gin.Context) {
	month, start, end, err := parseMonth(c.Query("month"))
	if err != nil {
		FieldErrors(c, map[string]string{"month": "must be in the format 2006-01"})
		return
	}
	orgID := middleware.GetCurrentOrgID(c)

	var groups []models.BudgetCategoryGroup
	if err := database.DB.Where("organization_id = ? AND is_hidden = ?", orgID, false).
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_hidden = ?", false).Order("sort_order ASC, id ASC")
		}).
		Order("sort_order ASC, id ASC").Find(&groups).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to load budget categories"))
		return
	}

	totals, err := monthTotals(database.DB, orgID, start, end)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to sum transactions"))
		return
	}
	actual := make(map[string]decimal.Decimal, len(totals))
	summary := BudgetSummary{
		Month:         month,
		Lines:         []BudgetLine{},
		TotalBudget:   decimal.Zero,
		TotalExpense:  decimal.Zero,
		TotalIncome:   decimal.Zero,
		Uncategorized: decimal.Zero,
	}
	for _, t := range totals {
		// 分类名称不区分大小写
		key := strings.ToLower(t.Category) + "|" + t.Type
		actual[key] = actual[key].Add(t.Total)
		if t.Type == string(models.TransactionIncome) {
			summary.TotalIncome = summary.TotalIncome.Add(t.Total)
		} else {
			summary.TotalExpense = summary.TotalExpense.Add(t.Total)
		}
	}

	matched := make(map[string]bool)
	for _, g := range groups {
		for _, cat := range g.Categories {
			key := strings.ToLower(cat.Name) + "|" + cat.Kind
			spent := actual[key]
			matched[key] = true
			line := BudgetLine{
				CategoryID: cat.ID,
				Name:       cat.Name,
				GroupID:    g.ID,
				GroupName:  g.Name,
				Kind:       cat.Kind,
				Budget:     cat.MonthlyBudget,
				Actual:     spent,
				Remaining:  cat.MonthlyBudget.Sub(spent),
			}
			if cat.MonthlyBudget.IsPositive() {
				line.PercentUsed, _ = spent.Div(cat.MonthlyBudget).Mul(decimal.NewFromInt(100)).Round(1).Float64()
			}
			if cat.Kind == models.BudgetKindExpense {
				summary.TotalBudget = summary.TotalBudget.Add(cat.MonthlyBudget)
			}
			summary.Lines = append(summary.Lines, line)
		}
	}
	for key, total := range actual {
		if !matched[key] && strings.HasSuffix(key, "|"+models.BudgetKindExpense) {
			summary.Uncategorized = summary.Uncategorized.Add(total)
		}
	}

	Success(c, summary)
}
