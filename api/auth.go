package api

import (
	"errors"
	"net/http"
	"strings"

	"globfam/config"
	"globfam/database"
	"globfam/middleware"
	"globfam/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg *config.Config
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// RegisterRequest 注册请求：同时创建组织与所有者账号
type RegisterRequest struct {
	Name             string `json:"name" binding:"required,max=100" example:"Ana Silva"`
	Email            string `json:"email" binding:"required,email,max=191" example:"ana@example.com"`
	Password         string `json:"password" binding:"required,min=8,max=72" example:"password123"`
	OrganizationName string `json:"organization_name" binding:"omitempty,max=100" example:"Silva Family"`
	BaseCurrency     string `json:"base_currency" binding:"omitempty,currency" example:"AUD"`
	Country          string `json:"country" binding:"omitempty,len=2" example:"AU"`
	Locale           string `json:"locale" binding:"omitempty,locale" example:"en-AU"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"ana@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// AuthResponse 登录/注册响应
type AuthResponse struct {
	Token        string               `json:"token"`
	User         models.User          `json:"user"`
	Organization *models.Organization `json:"organization,omitempty"`
}

// Register 用户注册
// @Summary 注册
// @Description 创建组织与所有者账号，并写入默认预算分类
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 201 {object} Response{data=AuthResponse} "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "邮箱已注册"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "failed to hash password")
		return
	}

	baseCurrency := req.BaseCurrency
	if baseCurrency == "" {
		baseCurrency = h.cfg.Import.DefaultCurrency
	}
	orgName := strings.TrimSpace(req.OrganizationName)
	if orgName == "" {
		orgName = req.Name + "'s family"
	}

	org := models.Organization{Name: orgName, BaseCurrency: baseCurrency, Country: strings.ToUpper(req.Country)}
	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     models.RoleOwner,
		Locale:   req.Locale,
		Currency: baseCurrency,
		Status:   models.UserStatusActive,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return database.ErrDuplicate
		}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		user.OrganizationID = org.ID
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return database.SeedOrganization(tx, org.ID)
	})
	if err != nil {
		if errors.Is(database.MapError(err), database.ErrDuplicate) {
			Conflict(c, "email is already registered")
			return
		}
		InternalError(c, SafeErrorMessage(err, "registration failed"))
		return
	}

	token, err := middleware.GenerateToken(user.ID, org.ID, user.Role, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "failed to issue token")
		return
	}
	setSessionCookie(c, token, int(h.cfg.JWT.ExpireTime.Seconds()))
	Created(c, "registered", AuthResponse{Token: token, User: user, Organization: &org})
}

// Login 用户登录
// @Summary 登录
// @Description 校验邮箱密码，返回 JWT 并写入会话 Cookie
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=AuthResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "邮箱或密码错误"
// @Failure 403 {object} Response "账号已锁定"
// @Failure 429 {object} Response "尝试次数过多"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		Unauthorized(c, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		Unauthorized(c, "invalid email or password")
		return
	}
	// 仅正常用户可登录
	if user.Status != models.UserStatusActive {
		Error(c, http.StatusForbidden, "account is locked")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.OrganizationID, user.Role, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "failed to issue token")
		return
	}
	setSessionCookie(c, token, int(h.cfg.JWT.ExpireTime.Seconds()))
	Success(c, AuthResponse{Token: token, User: user})
}

// Logout 退出登录
// @Summary 退出登录
// @Tags 认证
// @Produce json
// @Success 200 {object} Response "已退出"
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	clearSessionCookie(c)
	SuccessWithMessage(c, "logged out", nil)
}

// GetProfile 获取用户信息
// @Summary 当前用户信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	var user models.User
	if err := database.DB.First(&user, middleware.GetCurrentUserID(c)).Error; err != nil {
		HandleError(c, err, "failed to load profile")
		return
	}
	Success(c, user)
}

// UpdateProfileRequest 更新个人信息请求
type UpdateProfileRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100" example:"Ana"`
	Locale   *string `json:"locale" binding:"omitempty,locale" example:"pt-BR"`
	Currency *string `json:"currency" binding:"omitempty,currency" example:"BRL"`
}

// UpdateProfile 更新个人信息
// @Summary 更新个人信息
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "个人信息"
// @Success 200 {object} Response{data=models.User} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	var user models.User
	if err := database.DB.First(&user, middleware.GetCurrentUserID(c)).Error; err != nil {
		HandleError(c, err, "failed to load profile")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Locale != nil {
		updates["locale"] = *req.Locale
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if len(updates) > 0 {
		if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "failed to update profile"))
			return
		}
	}
	SuccessWithMessage(c, "profile updated", user)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required" example:"oldpassword123"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72" example:"newpassword123"`
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "密码信息"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "原密码错误"
// @Router /api/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}

	var user models.User
	if err := database.DB.First(&user, middleware.GetCurrentUserID(c)).Error; err != nil {
		HandleError(c, err, "failed to load user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		Unauthorized(c, "current password is incorrect")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "failed to hash password")
		return
	}
	if err := database.DB.Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to update password"))
		return
	}
	SuccessWithMessage(c, "password changed", nil)
}
