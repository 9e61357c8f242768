package api

import (
	"errors"
	"strings"

	"globfam/database"
	"globfam/middleware"
	"globfam/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// OrganizationHandler 组织与成员处理器
type OrganizationHandler struct{}

// NewOrganizationHandler 创建组织处理器
func NewOrganizationHandler() *OrganizationHandler {
	return &OrganizationHandler{}
}

// Get 获取当前组织
// @Summary 当前组织
// @Tags 组织
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.Organization} "获取成功"
// @Router /api/organization [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	var org models.Organization
	if err := database.DB.First(&org, middleware.GetCurrentOrgID(c)).Error; err != nil {
		HandleError(c, err, "failed to load organization")
		return
	}
	Success(c, org)
}

// ListMembers 成员列表
// @Summary 成员列表
// @Tags 组织
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.User} "获取成功"
// @Router /api/organization/members [get]
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	var users []models.User
	if err := database.DB.Where("organization_id = ?", middleware.GetCurrentOrgID(c)).
		Order("id").Find(&users).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "failed to list members"))
		return
	}
	Success(c, users)
}

// AddMemberRequest 添加成员请求
type AddMemberRequest struct {
	Name     string `json:"name" binding:"required,max=100" example:"Leo Silva"`
	Email    string `json:"email" binding:"required,email,max=191" example:"leo@example.com"`
	Password string `json:"password" binding:"required,min=8,max=72" example:"password123"`
	Role     string `json:"role" binding:"required,oneof=OWNER MEMBER VIEWER" example:"MEMBER"`
	Locale   string `json:"locale" binding:"omitempty,locale" example:"en-AU"`
}

// AddMember 添加成员（仅所有者）
// @Summary 添加成员
// @Tags 组织
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddMemberRequest true "成员信息"
// @Success 201 {object} Response{data=models.User} "添加成功"
// @Failure 403 {object} Response "仅所有者可添加成员"
// @Failure 409 {object} Response "邮箱已注册"
// @Router /api/organization/members [post]
func (h *OrganizationHandler) AddMember(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BindError(c, err)
		return
	}
	orgID := middleware.GetCurrentOrgID(c)

	var org models.Organization
	if err := database.DB.First(&org, orgID).Error; err != nil {
		HandleError(c, err, "failed to load organization")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "failed to hash password")
		return
	}
	user := models.User{
		OrganizationID: orgID,
		Name:           req.Name,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Password:       string(hashedPassword),
		Role:           req.Role,
		Locale:         req.Locale,
		Currency:       org.BaseCurrency,
		Status:         models.UserStatusActive,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		if errors.Is(database.MapError(err), database.ErrDuplicate) {
			Conflict(c, "email is already registered")
			return
		}
		InternalError(c, SafeErrorMessage(err, "failed to add member"))
		return
	}
	Created(c, "member added", user)
}
