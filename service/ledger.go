package service

import (
	"context"
	"errors"
	"fmt"

	"globfam/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrAssetNotFound 资产不存在或不属于当前组织
	ErrAssetNotFound = errors.New("asset not found")
	// ErrInvalidTransfer 转账缺少目标资产、目标与来源相同或不在同一组织
	ErrInvalidTransfer = errors.New("invalid transfer")
	// ErrInvalidAmount 金额必须为正数
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidTransactionType 未知交易类型
	ErrInvalidTransactionType = errors.New("invalid transaction type")
)

// LedgerService 交易入账：写入交易并同步调整资产余额
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService 创建入账服务
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// CreateTransaction 在同一数据库事务中写入交易并更新余额
// INCOME 增加 AssetID 余额；EXPENSE 减少；TRANSFER 减少 AssetID 并增加 ToAssetID
func (s *LedgerService) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !models.ValidTransactionTypes[t.Type] {
		return ErrInvalidTransactionType
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asset, err := FindAsset(tx, t.OrganizationID, t.AssetID)
		if err != nil {
			return err
		}
		if t.Currency == "" {
			t.Currency = asset.Currency
		}

		if t.Type == models.TransactionTransfer {
			if t.ToAssetID == nil || *t.ToAssetID == t.AssetID {
				return ErrInvalidTransfer
			}
			if _, err := FindAsset(tx, t.OrganizationID, *t.ToAssetID); err != nil {
				if errors.Is(err, ErrAssetNotFound) {
					return ErrInvalidTransfer
				}
				return err
			}
		} else {
			t.ToAssetID = nil
		}

		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := AdjustBalance(tx, t.AssetID, t.SignedAmount()); err != nil {
			return err
		}
		if t.Type == models.TransactionTransfer {
			if err := AdjustBalance(tx, *t.ToAssetID, t.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindAsset 按组织查找资产
func FindAsset(db *gorm.DB, orgID, assetID uint) (*models.Asset, error) {
	var asset models.Asset
	err := db.Where("id = ? AND organization_id = ?", assetID, orgID).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load asset %d: %w", assetID, err)
	}
	return &asset, nil
}

// AdjustBalance 原子地调整资产余额
func AdjustBalance(tx *gorm.DB, assetID uint, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	res := tx.Model(&models.Asset{}).
		Where("id = ?", assetID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust balance of asset %d: %w", assetID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// ReconcileResult 对账结果
type ReconcileResult struct {
	AssetID         uint            `json:"asset_id"`
	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	StoredBalance   decimal.Decimal `json:"stored_balance"`
	ComputedBalance decimal.Decimal `json:"computed_balance"`
	Drift           decimal.Decimal `json:"drift"`
	Transactions    int             `json:"transactions"`
	Applied         bool            `json:"applied"`
}

// Reconcile 由期初余额与现存交易重新计算余额，报告与存储余额的差额
// apply 为 true 时写回重算后的余额
func (s *LedgerService) Reconcile(ctx context.Context, orgID, assetID uint, apply bool) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asset, err := FindAsset(tx, orgID, assetID)
		if err != nil {
			return err
		}

		var txs []models.Transaction
		if err := tx.Select("id", "type", "amount", "asset_id", "to_asset_id").
			Where("organization_id = ? AND (asset_id = ? OR to_asset_id = ?)", orgID, assetID, assetID).
			Find(&txs).Error; err != nil {
			return fmt.Errorf("load postings: %w", err)
		}

		computed := asset.OpeningBalance
		for i := range txs {
			computed = computed.Add(postingFor(&txs[i], assetID))
		}

		result = &ReconcileResult{
			AssetID:         asset.ID,
			OpeningBalance:  asset.OpeningBalance,
			StoredBalance:   asset.Balance,
			ComputedBalance: computed,
			Drift:           asset.Balance.Sub(computed),
			Transactions:    len(txs),
		}

		if apply && !result.Drift.IsZero() {
			if err := tx.Model(&models.Asset{}).Where("id = ?", asset.ID).
				Update("balance", computed).Error; err != nil {
				return fmt.Errorf("apply reconciled balance: %w", err)
			}
			result.Applied = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// postingFor 交易对指定资产余额的影响
func postingFor(t *models.Transaction, assetID uint) decimal.Decimal {
	if t.AssetID == assetID {
		return t.SignedAmount()
	}
	if t.Type == models.TransactionTransfer && t.ToAssetID != nil && *t.ToAssetID == assetID {
		return t.Amount
	}
	return decimal.Zero
}
