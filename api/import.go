package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"globfam/database"
	"globfam/importer"
	"globfam/middleware"
	"globfam/models"

	"github.com/gin-gonic/gin"
)

// ImportHandler 交易导入处理器
type ImportHandler struct {
	importer  *importer.Importer
	maxUpload int64
}

// NewImportHandler 创建导入处理器，maxUploadMB 为上传文件大小上限
func NewImportHandler(imp *importer.Importer, maxUploadMB int) *ImportHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &ImportHandler{importer: imp, maxUpload: int64(maxUploadMB) << 20}
}

// PreviewForm 预览表单
type PreviewForm struct {
	Sheet string `form:"sheet"`
}

// ImportForm 导入表单，mapping 为 JSON 字符串；未提供时也可用 date/amount/... 表单字段
type ImportForm struct {
	AssetID         uint   `form:"asset_id" binding:"required"`
	Mapping         string `form:"mapping"`
	DateFormat      string `form:"date_format" example:"DD/MM/YYYY"`
	Sheet           string `form:"sheet"`
	DefaultCurrency string `form:"default_currency" binding:"omitempty,currency"`
	SkipDuplicates  bool   `form:"skip_duplicates"`
	AICategorize    bool   `form:"ai_categorize"`
}

// ImportListRequest 导入记录列表请求
type ImportListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	AssetID  uint   `form:"asset_id"`
	Status   string `form:"status" binding:"omitempty,oneof=processing completed failed"`
}

// readUpload 读取 multipart 中的 file 字段
func (h *ImportHandler) readUpload(c *gin.Context) (string, []byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, http.StatusRequestEntityTooLarge, "file too large")
			return "", nil, false
		}
		FieldErrors(c, map[string]string{"file": "is required"})
		return "", nil, false
	}
	if fh.Size > h.maxUpload {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return "", nil, false
	}
	f, err := fh.Open()
	if err != nil {
		BadRequest(c, SafeErrorMessage(err, "failed to read upload"))
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		BadRequest(c, SafeErrorMessage(err, "failed to read upload"))
		return "", nil, false
	}
	if int64(len(data)) > h.maxUpload {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return "", nil, false
	}
	return fh.Filename, data, true
}

func (h *ImportHandler) limitBody(c *gin.Context) {
	// 预留 1MB 给其它表单字段
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+(1<<20))
}

// Preview 预览上传文件
// @Summary 预览导入文件
// @Description 返回表头、样本行、推荐列映射与识别到的日期格式
// @Tags 导入
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV 或 XLSX 文件"
// @Param sheet formData string false "工作表名称（XLSX）"
// @Success 200 {object} Response{data=importer.PreviewResult} "预览成功"
// @Failure 400 {object} Response "文件类型不支持或文件为空"
// @Failure 413 {object} Response "文件过大"
// @Router /api/imports/preview [post]
func (h *ImportHandler) Preview(c *gin.Context) {
	h.limitBody(c)
	name, data, ok := h.readUpload(c)
	if !ok {
		return
	}
	var form PreviewForm
	_ = c.ShouldBind(&form)

	res, err := h.importer.Preview(name, data, form.Sheet)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFile) || errors.Is(err, importer.ErrEmptyFile) {
			HandleError(c, err, "failed to preview file")
			return
		}
		BadRequest(c, SafeErrorMessage(err, "failed to read file"))
		return
	}
	Success(c, res)
}

// Create 上传并导入交易
// @Summary 导入交易
// @Description 解析 CSV/XLSX 并按批写入交易，逐行错误在导入记录中返回
// @Tags 导入
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV 或 XLSX 文件"
// @Param asset_id formData int true "目标资产ID"
// @Param mapping formData string false "列映射 JSON，如 {\"date\":\"Date\",\"amount\":\"Amount\"}"
// @Param date_format formData string false "日期格式，如 DD/MM/YYYY"
// @Param sheet formData string false "工作表名称（XLSX）"
// @Param default_currency formData string false "默认币种"
// @Param skip_duplicates formData bool false "跳过重复交易"
// @Param ai_categorize formData bool false "自动分类"
// @Success 201 {object} Response{data=models.ImportHistory} "导入完成"
// @Failure 400 {object} Response{data=models.ImportHistory} "文件无法读取或映射缺少必需列"
// @Failure 404 {object} Response "资产不存在"
// @Failure 413 {object} Response "文件过大"
// @Router /api/imports [post]
func (h *ImportHandler) Create(c *gin.Context) {
	h.limitBody(c)

	var form ImportForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(c, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		BindError(c, err)
		return
	}

	var mapping importer.ColumnMapping
	if form.Mapping != "" {
		if err := json.Unmarshal([]byte(form.Mapping), &mapping); err != nil {
			FieldErrors(c, map[string]string{"mapping": "must be a JSON object"})
			return
		}
	} else if err := c.ShouldBind(&mapping); err != nil {
		BindError(c, err)
		return
	}

	name, data, ok := h.readUpload(c)
	if !ok {
		return
	}

	req := importer.Request{
		OrganizationID:  middleware.GetCurrentOrgID(c),
		UserID:          middleware.GetCurrentUserID(c),
		AssetID:         form.AssetID,
		FileName:        name,
		Data:            data,
		Sheet:           form.Sheet,
		Mapping:         mapping,
		DateFormat:      form.DateFormat,
		DefaultCurrency: form.DefaultCurrency,
		SkipDuplicates:  form.SkipDuplicates,
		AICategorize:    form.AICategorize,
	}
	hist, err := h.importer.Import(c.Request.Context(), req)
	if err != nil {
		if hist == nil {
			HandleError(c, err, "failed to import file")
			return
		}
		status := http.StatusBadRequest
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, Response{
			Success: false,
			Data:    hist,
			Error:   &ErrorBody{Message: SafeErrorMessage(err, "import failed")},
		})
		return
	}
	Created(c, hist.Message, hist)
}

// List 导入记录
// @Summary 导入记录列表
// @Tags 导入
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param asset_id query int false "资产ID"
// @Param status query string false "状态"
// @Success 200 {object} Response{data=PageResponse{list=[]models.ImportHistory}} "获取成功"
// @Router /api/imports [get]
func (h *ImportHandler) List(c *gin.Context) {
	var req ImportListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BindError(c, err)
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := database.DB.Model(&models.ImportHistory{}).Where("organization_id = ?", middleware.GetCurrentOrgID(c))
	if req.AssetID > 0 {
		query = query.Where("asset_id = ?", req.AssetID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to count imports"))
		return
	}
	var list []models.ImportHistory
	if err := query.Order("id DESC").Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to list imports"))
		return
	}
	Success(c, PageResponse{Total: total, Page: req.Page, PageSize: req.PageSize, List: list})
}

// Get 导入记录详情
// @Summary 导入记录详情
// @Tags 导入
// @Produce json
// @Security BearerAuth
// @Param id path int true "导入记录ID"
// @Success 200 {object} Response{data=models.ImportHistory} "获取成功"
// @Failure 404 {object} Response "记录不存在"
// @Router /api/imports/{id} [get]
func (h *ImportHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var hist models.ImportHistory
	if err := database.DB.Where("id = ? AND organization_id = ?", id, middleware.GetCurrentOrgID(c)).First(&hist).Error; err != nil {
		if database.IsNotFound(err) {
			NotFound(c, "import not found")
			return
		}
		InternalError(c, SafeErrorMessage(err, "failed to load import"))
		return
	}
	Success(c, hist)
}
