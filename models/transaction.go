package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType 交易类型
type TransactionType string

const (
	TransactionIncome   TransactionType = "INCOME"
	TransactionExpense  TransactionType = "EXPENSE"
	TransactionTransfer TransactionType = "TRANSFER"
)

// ValidTransactionTypes 所有合法交易类型
var ValidTransactionTypes = map[TransactionType]bool{
	TransactionIncome:   true,
	TransactionExpense:  true,
	TransactionTransfer: true,
}

// Transaction 交易记录。Amount 恒为正数，方向由 Type 决定
type Transaction struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrganizationID uint            `json:"organization_id" gorm:"index;not null"`
	UserID         uint            `json:"user_id" gorm:"index;not null"`
	AssetID        uint            `json:"asset_id" gorm:"index:idx_transactions_asset_date;not null"`
	ToAssetID      *uint           `json:"to_asset_id,omitempty" gorm:"index"`
	Type           TransactionType `json:"type" gorm:"size:20;not null;index"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(18,2);not null"`
	Currency       string          `json:"currency" gorm:"size:3;not null"`
	Category       string          `json:"category" gorm:"size:100;index"`
	Description    string          `json:"description" gorm:"size:255"`
	Notes          string          `json:"notes" gorm:"size:1000"`
	Date           time.Time       `json:"date" gorm:"index:idx_transactions_asset_date;not null"`

	// 导入元数据
	ImportID      *uint    `json:"import_id,omitempty" gorm:"index"`
	SourceRow     *int     `json:"source_row,omitempty"`
	AICategorized bool     `json:"ai_categorized" gorm:"not null;default:false"`
	AIConfidence  *float64 `json:"ai_confidence,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Transaction) TableName() string {
	return "transactions"
}

// SignedAmount 相对于 AssetID 的带符号金额：收入为正，支出与转出为负
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}
