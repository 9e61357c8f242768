package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// UserStatusLocked 锁定：不可登录
	UserStatusLocked = "locked"
	// UserStatusActive 正常：可登录
	UserStatusActive = "active"
)

// 成员角色
const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
	RoleViewer = "VIEWER"
)

// ValidRoles 可分配的角色
var ValidRoles = map[string]bool{
	RoleOwner:  true,
	RoleMember: true,
	RoleViewer: true,
}

// User 用户模型，隶属于一个组织
type User struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	OrganizationID uint           `json:"organization_id" gorm:"index;not null"`
	Name           string         `json:"name" gorm:"size:100;not null"`
	Email          string         `json:"email" gorm:"uniqueIndex;size:191;not null"`
	Password       string         `json:"-" gorm:"size:255;not null"`
	Role           string         `json:"role" gorm:"size:20;not null"`
	Locale         string         `json:"locale" gorm:"size:20"`
	Currency       string         `json:"currency" gorm:"size:3"`
	Status         string         `json:"status" gorm:"size:20;index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// CanWrite 只读成员不能修改数据
func (u *User) CanWrite() bool {
	return u.Role == RoleOwner || u.Role == RoleMember
}
