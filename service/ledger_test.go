package service

import (
	"context"
	"testing"
	"time"

	"globfam/database"
	"globfam/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedgerDB(t *testing.T) *gorm.DB {
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	return db
}

func createAsset(t *testing.T, db *gorm.DB, orgID uint, name string, opening string) *models.Asset {
	bal := decimal.RequireFromString(opening)
	a := &models.Asset{
		OrganizationID: orgID,
		CreatedBy:      1,
		Name:           name,
		Type:           models.AssetSavings,
		Currency:       "AUD",
		OpeningBalance: bal,
		Balance:        bal,
		IsActive:       true,
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

func balanceOf(t *testing.T, db *gorm.DB, id uint) decimal.Decimal {
	var a models.Asset
	require.NoError(t, db.First(&a, id).Error)
	return a.Balance
}

func newTx(orgID, assetID uint, typ models.TransactionType, amount string) *models.Transaction {
	return &models.Transaction{
		OrganizationID: orgID,
		UserID:         1,
		AssetID:        assetID,
		Type:           typ,
		Amount:         decimal.RequireFromString(amount),
		Description:    "test",
		Date:           time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLedger_IncomeAndExpense(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()
	asset := createAsset(t, db, 1, "Everyday", "100.00")

	require.NoError(t, svc.CreateTransaction(ctx, newTx(1, asset.ID, models.TransactionIncome, "250.50")))
	assert.True(t, balanceOf(t, db, asset.ID).Equal(decimal.RequireFromString("350.50")))

	expense := newTx(1, asset.ID, models.TransactionExpense, "50.25")
	require.NoError(t, svc.CreateTransaction(ctx, expense))
	assert.True(t, balanceOf(t, db, asset.ID).Equal(decimal.RequireFromString("300.25")))
	assert.Equal(t, "AUD", expense.Currency)
}

func TestLedger_Transfer(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()
	from := createAsset(t, db, 1, "Everyday", "500")
	to := createAsset(t, db, 1, "Savings", "0")

	tr := newTx(1, from.ID, models.TransactionTransfer, "120")
	tr.ToAssetID = &to.ID
	require.NoError(t, svc.CreateTransaction(ctx, tr))

	assert.True(t, balanceOf(t, db, from.ID).Equal(decimal.NewFromInt(380)))
	assert.True(t, balanceOf(t, db, to.ID).Equal(decimal.NewFromInt(120)))
}

func TestLedger_InvalidInputs(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()
	asset := createAsset(t, db, 1, "Everyday", "10")
	foreign := createAsset(t, db, 2, "Other family", "10")

	// 缺少目标资产
	err := svc.CreateTransaction(ctx, newTx(1, asset.ID, models.TransactionTransfer, "5"))
	assert.ErrorIs(t, err, ErrInvalidTransfer)

	// 目标与来源相同
	self := newTx(1, asset.ID, models.TransactionTransfer, "5")
	self.ToAssetID = &asset.ID
	assert.ErrorIs(t, svc.CreateTransaction(ctx, self), ErrInvalidTransfer)

	// 跨组织转账
	cross := newTx(1, asset.ID, models.TransactionTransfer, "5")
	cross.ToAssetID = &foreign.ID
	assert.ErrorIs(t, svc.CreateTransaction(ctx, cross), ErrInvalidTransfer)

	// 其他组织的资产
	assert.ErrorIs(t, svc.CreateTransaction(ctx, newTx(1, foreign.ID, models.TransactionIncome, "5")), ErrAssetNotFound)

	assert.ErrorIs(t, svc.CreateTransaction(ctx, newTx(1, asset.ID, models.TransactionIncome, "0")), ErrInvalidAmount)
	assert.ErrorIs(t, svc.CreateTransaction(ctx, newTx(1, asset.ID, "REFUND", "1")), ErrInvalidTransactionType)

	// 失败的请求不写入交易，也不改变余额
	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	assert.Zero(t, count)
	assert.True(t, balanceOf(t, db, asset.ID).Equal(decimal.NewFromInt(10)))
}

func TestLedger_DeleteDoesNotCorrectBalance(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()
	asset := createAsset(t, db, 1, "Everyday", "0")

	tx := newTx(1, asset.ID, models.TransactionIncome, "40")
	require.NoError(t, svc.CreateTransaction(ctx, tx))
	require.NoError(t, db.Delete(&models.Transaction{}, tx.ID).Error)

	assert.True(t, balanceOf(t, db, asset.ID).Equal(decimal.NewFromInt(40)))
}

func TestLedger_Reconcile(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()
	a := createAsset(t, db, 1, "Everyday", "100")
	b := createAsset(t, db, 1, "Savings", "0")

	require.NoError(t, svc.CreateTransaction(ctx, newTx(1, a.ID, models.TransactionIncome, "50")))
	expense := newTx(1, a.ID, models.TransactionExpense, "30")
	require.NoError(t, svc.CreateTransaction(ctx, expense))
	tr := newTx(1, a.ID, models.TransactionTransfer, "20")
	tr.ToAssetID = &b.ID
	require.NoError(t, svc.CreateTransaction(ctx, tr))

	// 只有创建时无差额
	res, err := svc.Reconcile(ctx, 1, a.ID, false)
	require.NoError(t, err)
	assert.True(t, res.Drift.IsZero())
	assert.Equal(t, 3, res.Transactions)
	assert.True(t, res.ComputedBalance.Equal(decimal.NewFromInt(100)))

	res, err = svc.Reconcile(ctx, 1, b.ID, false)
	require.NoError(t, err)
	assert.True(t, res.Drift.IsZero())

	// 删除后出现差额
	require.NoError(t, db.Delete(&models.Transaction{}, expense.ID).Error)
	res, err = svc.Reconcile(ctx, 1, a.ID, false)
	require.NoError(t, err)
	assert.True(t, res.Drift.Equal(decimal.NewFromInt(-30)))
	assert.False(t, res.Applied)

	res, err = svc.Reconcile(ctx, 1, a.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, balanceOf(t, db, a.ID).Equal(decimal.NewFromInt(130)))

	_, err = svc.Reconcile(ctx, 2, a.ID, false)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}
