package api

import (
	"strings"
	"time"

	"globfam/database"
	"globfam/middleware"
	"globfam/models"
	"globfam/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// GoalHandler 储蓄目标处理器
type GoalHandler struct{}

// NewGoalHandler 创建目标处理器
func NewGoalHandler() *GoalHandler {
	return &GoalHandler{}
}

// CreateGoalRequest 创建目标请求
type CreateGoalRequest struct {
	Name         string          `json:"name" binding:"required,max=100" example:"Semester 2 tuition"`
	Category     string          `json:"category" binding:"required,oneof=EDUCATION EMERGENCY TRAVEL VISA HOUSING OTHER" example:"EDUCATION"`
	TargetAmount decimal.Decimal `json:"target_amount" swaggertype:"string" example:"18000.00"`
	Currency     string          `json:"currency" binding:"required,currency" example:"AUD"`
	TargetDate   string          `json:"target_date" binding:"omitempty,datetime=2006-01-02" example:"2025-02-01"`
	AssetID      *uint           `json:"asset_id"`
	Description  string          `json:"description" binding:"max=255"`
}

// UpdateGoalRequest 更新目标请求
type UpdateGoalRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=100"`
	Category     *string          `json:"category" binding:"omitempty,oneof=EDUCATION EMERGENCY TRAVEL VISA HOUSING OTHER"`
	TargetAmount *decimal.Decimal `json:"target_amount" swaggertype:"string"`
	TargetDate   *string          `json:"target_date" binding:"omitempty,datetime=2006-01-02"`
	Status       *string          `json:"status" binding:"omitempty,oneof=ACTIVE COMPLETED ARCHIVED"`
	Description  *string          `json:"description" binding:"omitempty,max=255"`
}

// ContributionRequest 目标存入请求
type ContributionRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
	Note   string          `json:"note" binding:"max=255"`
}

// GoalResponse 目标及完成进度
type GoalResponse struct {
	models.Goal
	Progress float64 `json:"progress"`
}

func toGoalResponse(g *models.Goal) GoalResponse {
	return GoalResponse{Goal: *g, Progress: g.Progress()}
}

// List 目标列表
// @Summary 目标列表
// @Tags 目标
// @Produce json
// @Security BearerAuth
// @Param status query string false "目标状态"
// @Success 200 {object} Response{data=[]GoalResponse} "获取成功"
// @Router /api/goals [get]
func (h *GoalHandler) List(c *gin.Context) {
	query := database.DB.Where("organization_id = ?", middleware.GetCurrentOrgID(c))
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var goals []models.Goal
	if err := query.Order("target_date IS NULL, target_date ASC, id ASC").Find(&goals).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to list goals"))
		return
	}
	list := make([]GoalResponse, 0, len(goals))
	for i := range goals {
		list = append(list, toGoalResponse(&goals[i]))
	}
	Success(c, list)
}

// Create 创建目标
// @Summary 创建目标
// @Tags 目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateGoalRequest true "目标信息"
// @Success 201 {object} Response{data=GoalResponse} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	if !req.TargetAmount.IsPositive() {
		FieldErrors(c, map[string]string{"target_amount": "must be greater than 0"})
		return
	}

	orgID := middleware.GetCurrentOrgID(c)
	goal := models.Goal{
		OrganizationID: orgID,
		CreatedBy:      middleware.GetCurrentUserID(c),
		Name:           strings.TrimSpace(req.Name),
		Category:       models.GoalCategory(req.Category),
		TargetAmount:   req.TargetAmount.Round(2),
		CurrentAmount:  decimal.Zero,
		Currency:       req.Currency,
		Status:         models.GoalActive,
		Description:    req.Description,
	}
	if req.TargetDate != "" {
		d, err := parseDay(req.TargetDate)
		if err != nil {
			FieldErrors(c, map[string]string{"target_date": "must be a date in the format 2006-01-02"})
			return
		}
		goal.TargetDate = &d
	}
	if req.AssetID != nil {
		if _, err := service.FindAsset(database.DB, orgID, *req.AssetID); err != nil {
			HandleError(c, err, "failed to load asset")
			return
		}
		goal.AssetID = req.AssetID
	}

	if err := database.DB.Create(&goal).Error; err != nil {
		HandleError(c, err, "failed to create goal")
		return
	}
	Created(c, "goal created", toGoalResponse(&goal))
}

func findGoal(c *gin.Context) (*models.Goal, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	var goal models.Goal
	if err := database.DB.Where("id = ? AND organization_id = ?", id, middleware.GetCurrentOrgID(c)).First(&goal).Error; err != nil {
		if database.IsNotFound(err) {
			NotFound(c, "goal not found")
			return nil, false
		}
		InternalError(c, SafeErrorMessage(err, "failed to load goal"))
		return nil, false
	}
	return &goal, true
}

// Get 目标详情
// @Summary 目标详情
// @Tags 目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Success 200 {object} Response{data=GoalResponse} "获取成功"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/goals/{id} [get]
func (h *GoalHandler) Get(c *gin.Context) {
	goal, ok := findGoal(c)
	if !ok {
		return
	}
	Success(c, toGoalResponse(goal))
}

// Update 更新目标
// @Summary 更新目标
// @Tags 目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Param request body UpdateGoalRequest true "目标信息"
// @Success 200 {object} Response{data=GoalResponse} "更新成功"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/goals/{id} [put]
func (h *GoalHandler) Update(c *gin.Context) {
	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	goal, ok := findGoal(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.TargetAmount != nil {
		if !req.TargetAmount.IsPositive() {
			FieldErrors(c, map[string]string{"target_amount": "must be greater than 0"})
			return
		}
		updates["target_amount"] = req.TargetAmount.Round(2)
	}
	if req.TargetDate != nil {
		var d *time.Time
		if *req.TargetDate != "" {
			parsed, err := parseDay(*req.TargetDate)
			if err != nil {
				FieldErrors(c, map[string]string{"target_date": "must be a date in the format 2006-01-02"})
				return
			}
			d = &parsed
		}
		updates["target_date"] = d
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) > 0 {
		if err := database.DB.Model(goal).Updates(updates).Error; err != nil {
			HandleError(c, err, "failed to update goal")
			return
		}
	}
	SuccessWithMessage(c, "goal updated", toGoalResponse(goal))
}

// Delete 删除目标
// @Summary 删除目标
// @Tags 目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/goals/{id} [delete]
func (h *GoalHandler) Delete(c *gin.Context) {
	goal, ok := findGoal(c)
	if !ok {
		return
	}
	if err := database.DB.Delete(goal).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to delete goal"))
		return
	}
	SuccessWithMessage(c, "goal deleted", nil)
}

// Contribute 目标存入
// @Summary 目标存入
// @Description 增加目标当前金额，达到目标金额后状态变为 COMPLETED
// @Tags 目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标ID"
// @Param request body ContributionRequest true "存入金额"
// @Success 200 {object} Response{data=GoalResponse} "存入成功"
// @Failure 400 {object} Response "金额无效或目标已归档"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/goals/{id}/contributions [post]
func (h *GoalHandler) Contribute(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	if !req.Amount.IsPositive() {
		FieldErrors(c, map[string]string{"amount": "must be greater than 0"})
		return
	}

	orgID := middleware.GetCurrentOrgID(c)
	goal, err := service.NewGoalService(database.DB).Contribute(c.Request.Context(), orgID, id, req.Amount.Round(2))
	if err != nil {
		HandleError(c, err, "failed to record contribution")
		return
	}
	log.Info().
		Uint("goal_id", goal.ID).
		Uint("user_id", middleware.GetCurrentUserID(c)).
		Str("amount", req.Amount.StringFixed(2)).
		Str("note", req.Note).
		Str("status", string(goal.Status)).
		Msg("目标存入")
	SuccessWithMessage(c, "contribution recorded", toGoalResponse(goal))
}
