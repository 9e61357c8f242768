package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AssetType 资产类型
type AssetType string

const (
	AssetCash           AssetType = "CASH"
	AssetSavings        AssetType = "SAVINGS"
	AssetProperty       AssetType = "PROPERTY"
	AssetInvestment     AssetType = "INVESTMENT"
	AssetCrypto         AssetType = "CRYPTO"
	AssetSuperannuation AssetType = "SUPERANNUATION"
	AssetDebt           AssetType = "DEBT"
	AssetOther          AssetType = "OTHER"
)

// ValidAssetTypes 所有合法资产类型
var ValidAssetTypes = map[AssetType]bool{
	AssetCash:           true,
	AssetSavings:        true,
	AssetProperty:       true,
	AssetInvestment:     true,
	AssetCrypto:         true,
	AssetSuperannuation: true,
	AssetDebt:           true,
	AssetOther:          true,
}

// Asset 资产，余额随交易入账增减
type Asset struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrganizationID uint            `json:"organization_id" gorm:"index;not null"`
	CreatedBy      uint            `json:"created_by" gorm:"not null"`
	Name           string          `json:"name" gorm:"size:100;not null"`
	Type           AssetType       `json:"type" gorm:"size:20;not null;index"`
	Currency       string          `json:"currency" gorm:"size:3;not null"`
	Country        string          `json:"country" gorm:"size:2"`
	OpeningBalance decimal.Decimal `json:"opening_balance" gorm:"type:decimal(18,2);not null"`
	Balance        decimal.Decimal `json:"balance" gorm:"type:decimal(18,2);not null"`
	Description    string          `json:"description" gorm:"size:255"`
	IsActive       bool            `json:"is_active" gorm:"not null"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Asset) TableName() string {
	return "assets"
}

// IsLiability 负债类资产在净资产中取负值
func (a *Asset) IsLiability() bool {
	return a.Type == AssetDebt
}
