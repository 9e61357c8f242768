package api

import (
	"errors"
	"net/http"

	"globfam/config"
	"globfam/database"
	"globfam/importer"
	"globfam/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Response 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody 错误详情，Fields 为字段级校验错误
type ErrorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	List     interface{} `json:"list"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created 201 响应
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Error: &ErrorBody{Message: message}})
}

// FieldErrors 400 字段校验错误
func FieldErrors(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, Response{Error: &ErrorBody{Message: "validation failed", Fields: fields}})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden 403 错误响应
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// Conflict 409 错误响应
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

// InternalError 500 错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// BindError 请求绑定失败：校验错误按字段返回，其余为 400
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		FieldErrors(c, fieldMessages(verrs))
		return
	}
	BadRequest(c, SafeErrorMessage(err, "invalid request body"))
}

// HandleError 将服务层与数据库错误映射为 HTTP 状态码
func HandleError(c *gin.Context, err error, fallback string) {
	err = database.MapError(err)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, service.ErrAssetNotFound),
		errors.Is(err, service.ErrGoalNotFound):
		NotFound(c, notFoundMessage(err))
	case errors.Is(err, service.ErrInvalidTransfer),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidTransactionType),
		errors.Is(err, service.ErrGoalArchived),
		errors.Is(err, importer.ErrUnsupportedFile),
		errors.Is(err, importer.ErrEmptyFile),
		errors.Is(err, importer.ErrMissingColumn):
		BadRequest(c, err.Error())
	case errors.Is(err, database.ErrDuplicate):
		Conflict(c, "resource already exists")
	default:
		InternalError(c, SafeErrorMessage(err, fallback))
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrAssetNotFound):
		return "asset not found"
	case errors.Is(err, service.ErrGoalNotFound):
		return "goal not found"
	}
	return "resource not found"
}

// SafeErrorMessage 生产环境下不向客户端暴露内部错误详情，避免信息泄露
func SafeErrorMessage(err error, fallback string) string {
	return config.SafeErrorMessage(err, fallback)
}
