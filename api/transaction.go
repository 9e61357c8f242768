package api

import (
	"strings"
	"time"

	"globfam/database"
	"globfam/middleware"
	"globfam/models"
	"globfam/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TransactionHandler 交易处理器
type TransactionHandler struct{}

// NewTransactionHandler 创建交易处理器
func NewTransactionHandler() *TransactionHandler {
	return &TransactionHandler{}
}

// CreateTransactionRequest 创建交易请求
type CreateTransactionRequest struct {
	AssetID     uint            `json:"asset_id" binding:"required" example:"1"`
	ToAssetID   *uint           `json:"to_asset_id" example:"2"`
	Type        string          `json:"type" binding:"required,oneof=INCOME EXPENSE TRANSFER" example:"EXPENSE"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"42.50"`
	Currency    string          `json:"currency" binding:"omitempty,currency" example:"AUD"`
	Category    string          `json:"category" binding:"max=100" example:"Groceries"`
	Description string          `json:"description" binding:"max=255" example:"Woolworths"`
	Notes       string          `json:"notes" binding:"max=1000"`
	Date        string          `json:"date" binding:"required,datetime=2006-01-02" example:"2024-03-01"`
}

// UpdateTransactionRequest 更新交易请求，不回写资产余额
type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount" swaggertype:"string"`
	Category    *string          `json:"category" binding:"omitempty,max=100"`
	Description *string          `json:"description" binding:"omitempty,max=255"`
	Notes       *string          `json:"notes" binding:"omitempty,max=1000"`
	Date        *string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// TransactionListRequest 交易列表请求
type TransactionListRequest struct {
	Page      int    `form:"page" example:"1"`
	PageSize  int    `form:"page_size" example:"20"`
	AssetID   uint   `form:"asset_id"`
	Type      string `form:"type" binding:"omitempty,oneof=INCOME EXPENSE TRANSFER"`
	Category  string `form:"category"`
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02" example:"2024-01-01"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02" example:"2024-12-31"`
	Search    string `form:"search"`
}

// parseDay 解析 YYYY-MM-DD 为 UTC 零点
func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// List 交易列表
// @Summary 交易列表
// @Description 支持按资产、类型、分类、日期范围与描述搜索筛选，分页返回
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param asset_id query int false "资产ID（含转入）"
// @Param type query string false "交易类型"
// @Param category query string false "分类"
// @Param start_date query string false "开始日期 (2024-01-01)"
// @Param end_date query string false "结束日期 (2024-12-31)"
// @Param search query string false "描述关键词"
// @Success 200 {object} Response{data=PageResponse{list=[]models.Transaction}} "获取成功"
// @Router /api/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	var req TransactionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BindError(c, err)
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 200 {
		req.PageSize = 200
	}

	query := database.DB.Model(&models.Transaction{}).Where("organization_id = ?", middleware.GetCurrentOrgID(c))
	if req.AssetID > 0 {
		query = query.Where("(asset_id = ? OR to_asset_id = ?)", req.AssetID, req.AssetID)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}
	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}
	if req.StartDate != "" {
		if start, err := parseDay(req.StartDate); err == nil {
			query = query.Where("date >= ?", start)
		}
	}
	if req.EndDate != "" {
		if end, err := parseDay(req.EndDate); err == nil {
			// 包含结束日期当天
			query = query.Where("date < ?", end.AddDate(0, 0, 1))
		}
	}
	if s := strings.TrimSpace(req.Search); s != "" {
		query = query.Where("LOWER(description) LIKE ? ESCAPE '!'", "%"+escapeLikeValue(strings.ToLower(s))+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to count transactions"))
		return
	}

	var txs []models.Transaction
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("date DESC, id DESC").Offset(offset).Limit(req.PageSize).Find(&txs).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to list transactions"))
		return
	}

	Success(c, PageResponse{Total: total, Page: req.Page, PageSize: req.PageSize, List: txs})
}

// Create 创建交易并入账
// @Summary 创建交易
// @Description INCOME 增加资产余额，EXPENSE 减少，TRANSFER 从 asset_id 转入 to_asset_id
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "交易信息"
// @Success 201 {object} Response{data=models.Transaction} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "资产不存在"
// @Router /api/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	if !req.Amount.IsPositive() {
		FieldErrors(c, map[string]string{"amount": "must be greater than 0"})
		return
	}
	date, err := parseDay(req.Date)
	if err != nil {
		FieldErrors(c, map[string]string{"date": "must be a date in the format 2006-01-02"})
		return
	}

	tx := models.Transaction{
		OrganizationID: middleware.GetCurrentOrgID(c),
		UserID:         middleware.GetCurrentUserID(c),
		AssetID:        req.AssetID,
		ToAssetID:      req.ToAssetID,
		Type:           models.TransactionType(req.Type),
		Amount:         req.Amount.Round(2),
		Currency:       req.Currency,
		Category:       strings.TrimSpace(req.Category),
		Description:    strings.TrimSpace(req.Description),
		Notes:          req.Notes,
		Date:           date,
	}
	if err := service.NewLedgerService(database.DB).CreateTransaction(c.Request.Context(), &tx); err != nil {
		HandleError(c, err, "failed to create transaction")
		return
	}
	Created(c, "transaction created", tx)
}

// findTransaction 按组织查找交易
func findTransaction(c *gin.Context) (*models.Transaction, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	var tx models.Transaction
	if err := database.DB.Where("id = ? AND organization_id = ?", id, middleware.GetCurrentOrgID(c)).First(&tx).Error; err != nil {
		if database.IsNotFound(err) {
			NotFound(c, "transaction not found")
			return nil, false
		}
		InternalError(c, SafeErrorMessage(err, "failed to load transaction"))
		return nil, false
	}
	return &tx, true
}

// Get 交易详情
// @Summary 交易详情
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Success 200 {object} Response{data=models.Transaction} "获取成功"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	tx, ok := findTransaction(c)
	if !ok {
		return
	}
	Success(c, tx)
}

// Update 更新交易
// @Summary 更新交易
// @Description 修改金额不会回写资产余额，可通过资产对账修正
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Param request body UpdateTransactionRequest true "交易信息"
// @Success 200 {object} Response{data=models.Transaction} "更新成功"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	tx, ok := findTransaction(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			FieldErrors(c, map[string]string{"amount": "must be greater than 0"})
			return
		}
		updates["amount"] = req.Amount.Round(2)
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Date != nil {
		date, err := parseDay(*req.Date)
		if err != nil {
			FieldErrors(c, map[string]string{"date": "must be a date in the format 2006-01-02"})
			return
		}
		updates["date"] = date
	}
	if len(updates) > 0 {
		if err := database.DB.Model(tx).Updates(updates).Error; err != nil {
			HandleError(c, err, "failed to update transaction")
			return
		}
	}
	SuccessWithMessage(c, "transaction updated", tx)
}

// Delete 删除交易（软删除，不回写资产余额）
// @Summary 删除交易
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	tx, ok := findTransaction(c)
	if !ok {
		return
	}
	if err := database.DB.Delete(tx).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to delete transaction"))
		return
	}
	SuccessWithMessage(c, "transaction deleted", nil)
}
