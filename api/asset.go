package api

import (
	"strconv"
	"strings"

	"globfam/database"
	"globfam/middleware"
	"globfam/models"
	"globfam/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AssetHandler 资产处理器
type AssetHandler struct{}

// NewAssetHandler 创建资产处理器
func NewAssetHandler() *AssetHandler {
	return &AssetHandler{}
}

// CreateAssetRequest 创建资产请求
type CreateAssetRequest struct {
	Name           string          `json:"name" binding:"required,max=100" example:"CommBank Everyday"`
	Type           string          `json:"type" binding:"required,oneof=CASH SAVINGS PROPERTY INVESTMENT CRYPTO SUPERANNUATION DEBT OTHER" example:"SAVINGS"`
	Currency       string          `json:"currency" binding:"required,currency" example:"AUD"`
	Country        string          `json:"country" binding:"omitempty,len=2" example:"AU"`
	OpeningBalance decimal.Decimal `json:"opening_balance" swaggertype:"string" example:"1500.00"`
	Description    string          `json:"description" binding:"max=255"`
}

// UpdateAssetRequest 更新资产请求，余额只能通过交易或对账修改
type UpdateAssetRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Type        *string `json:"type" binding:"omitempty,oneof=CASH SAVINGS PROPERTY INVESTMENT CRYPTO SUPERANNUATION DEBT OTHER"`
	Country     *string `json:"country" binding:"omitempty,len=2"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	IsActive    *bool   `json:"is_active"`
}

// parseID 解析路径参数 id
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// List 资产列表
// @Summary 资产列表
// @Tags 资产
// @Produce json
// @Security BearerAuth
// @Param type query string false "资产类型"
// @Param include_inactive query bool false "包含停用资产"
// @Success 200 {object} Response{data=[]models.Asset} "获取成功"
// @Router /api/assets [get]
func (h *AssetHandler) List(c *gin.Context) {
	query := database.DB.Where("organization_id = ?", middleware.GetCurrentOrgID(c))
	if t := strings.ToUpper(c.Query("type")); t != "" {
		query = query.Where("type = ?", t)
	}
	if c.Query("include_inactive") != "true" {
		query = query.Where("is_active = ?", true)
	}

	var assets []models.Asset
	if err := query.Order("name").Find(&assets).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to list assets"))
		return
	}
	Success(c, assets)
}

// Create 创建资产，初始余额等于期初余额
// @Summary 创建资产
// @Tags 资产
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAssetRequest true "资产信息"
// @Success 201 {object} Response{data=models.Asset} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/assets [post]
func (h *AssetHandler) Create(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	asset := models.Asset{
		OrganizationID: middleware.GetCurrentOrgID(c),
		CreatedBy:      middleware.GetCurrentUserID(c),
		Name:           strings.TrimSpace(req.Name),
		Type:           models.AssetType(req.Type),
		Currency:       req.Currency,
		Country:        strings.ToUpper(req.Country),
		OpeningBalance: req.OpeningBalance.Round(2),
		Balance:        req.OpeningBalance.Round(2),
		Description:    req.Description,
		IsActive:       true,
	}
	if err := database.DB.Create(&asset).Error; err != nil {
		HandleError(c, err, "failed to create asset")
		return
	}
	Created(c, "asset created", asset)
}

// Get 资产详情
// @Summary 资产详情
// @Tags 资产
// @Produce json
// @Security BearerAuth
// @Param id path int true "资产ID"
// @Success 200 {object} Response{data=models.Asset} "获取成功"
// @Failure 404 {object} Response "资产不存在"
// @Router /api/assets/{id} [get]
func (h *AssetHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	asset, err := service.FindAsset(database.DB, middleware.GetCurrentOrgID(c), id)
	if err != nil {
		HandleError(c, err, "failed to load asset")
		return
	}
	Success(c, asset)
}

// Update 更新资产
// @Summary 更新资产
// @Tags 资产
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "资产ID"
// @Param request body UpdateAssetRequest true "资产信息"
// @Success 200 {object} Response{data=models.Asset} "更新成功"
// @Failure 404 {object} Response "资产不存在"
// @Router /api/assets/{id} [put]
func (h *AssetHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	asset, err := service.FindAsset(database.DB, middleware.GetCurrentOrgID(c), id)
	if err != nil {
		HandleError(c, err, "failed to load asset")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Country != nil {
		updates["country"] = strings.ToUpper(*req.Country)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := database.DB.Model(asset).Updates(updates).Error; err != nil {
			HandleError(c, err, "failed to update asset")
			return
		}
	}
	SuccessWithMessage(c, "asset updated", asset)
}

// Delete 删除资产（软删除）
// @Summary 删除资产
// @Tags 资产
// @Produce json
// @Security BearerAuth
// @Param id path int true "资产ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "资产不存在"
// @Router /api/assets/{id} [delete]
func (h *AssetHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res := database.DB.Where("id = ? AND organization_id = ?", id, middleware.GetCurrentOrgID(c)).Delete(&models.Asset{})
	if res.Error != nil {
		InternalError(c, SafeErrorMessage(res.Error, "failed to delete asset"))
		return
	}
	if res.RowsAffected == 0 {
		NotFound(c, "asset not found")
		return
	}
	SuccessWithMessage(c, "asset deleted", nil)
}

// Reconcile 由期初余额与交易重算余额，apply=true 时写回
// @Summary 资产对账
// @Tags 资产
// @Produce json
// @Security BearerAuth
// @Param id path int true "资产ID"
// @Param apply query bool false "写回重算余额"
// @Success 200 {object} Response{data=service.ReconcileResult} "对账结果"
// @Failure 404 {object} Response "资产不存在"
// @Router /api/assets/{id}/reconcile [post]
func (h *AssetHandler) Reconcile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	apply := c.Query("apply") == "true"
	res, err := service.NewLedgerService(database.DB).Reconcile(c.Request.Context(), middleware.GetCurrentOrgID(c), id, apply)
	if err != nil {
		HandleError(c, err, "reconcile failed")
		return
	}
	Success(c, res)
}
