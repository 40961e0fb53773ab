package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stocktrail/stocktrail/internal/database/testutil"
	"github.com/stocktrail/stocktrail/internal/models"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
)

func newTestTransactionService(t *testing.T) (*TransactionService, *ItemService, *AuditService, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	items, err := NewItemService(db)
	require.NoError(t, err)
	transactions, err := NewTransactionService(db, audit)
	require.NoError(t, err)
	return transactions, items, audit, db
}

func seedItem(t *testing.T, items *ItemService, quantity int) *models.Item {
	t.Helper()
	item, err := items.Create(context.Background(), ItemCreateInput{
		SKU:      "SKU-1",
		Name:     "Widget",
		Quantity: quantity,
	})
	require.NoError(t, err)
	return item
}

func TestTransactionInIncreasesQuantity(t *testing.T) {
	transactions, items, _, _ := newTestTransactionService(t)
	ctx := context.Background()
	item := seedItem(t, items, 10)

	tr, err := transactions.Create(ctx, TransactionCreateInput{
		ItemID:   item.ID,
		Type:     models.TransactionIn,
		Quantity: 5,
	})
	require.NoError(t, err)
	require.Equal(t, 10, tr.PreviousQuantity)
	require.Equal(t, 15, tr.NewQuantity)

	reloaded, err := items.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 15, reloaded.Quantity)
}

func TestTransactionOutRejectsNegativeStock(t *testing.T) {
	transactions, items, _, _ := newTestTransactionService(t)
	ctx := context.Background()
	item := seedItem(t, items, 3)

	_, err := transactions.Create(ctx, TransactionCreateInput{
		ItemID:   item.ID,
		Type:     models.TransactionOut,
		Quantity: 5,
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)

	// Failed movement must leave both the item and the ledger untouched.
	reloaded, err := items.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 3, reloaded.Quantity)

	ledger, total, err := transactions.List(ctx, TransactionListOptions{ItemID: item.ID})
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
	require.Empty(t, ledger)
}

func TestTransactionAdjustmentSetsAbsoluteLevel(t *testing.T) {
	transactions, items, _, _ := newTestTransactionService(t)
	ctx := context.Background()
	item := seedItem(t, items, 10)

	tr, err := transactions.Create(ctx, TransactionCreateInput{
		ItemID:   item.ID,
		Type:     models.TransactionAdjustment,
		Quantity: 4,
	})
	require.NoError(t, err)
	require.Equal(t, 10, tr.PreviousQuantity)
	require.Equal(t, 4, tr.NewQuantity)

	reloaded, err := items.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 4, reloaded.Quantity)
}

func TestTransactionAuditsQuantityChange(t *testing.T) {
	transactions, items, audit, _ := newTestTransactionService(t)
	ctx := context.Background()
	item := seedItem(t, items, 10)

	tr, err := transactions.Create(ctx, TransactionCreateInput{
		ItemID:   item.ID,
		Type:     models.TransactionOut,
		Quantity: 2,
	})
	require.NoError(t, err)

	logs, _, err := audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{TableName: "items", Operation: models.AuditOpUpdate},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.EqualValues(t, 10, logs[0].OldValues["quantity"])
	require.EqualValues(t, 8, logs[0].NewValues["quantity"])
	require.Equal(t, tr.ID, logs[0].Metadata["transaction_id"])
}

func TestTransactionValidation(t *testing.T) {
	transactions, items, _, _ := newTestTransactionService(t)
	ctx := context.Background()
	item := seedItem(t, items, 10)

	_, err := transactions.Create(ctx, TransactionCreateInput{
		ItemID: item.ID, Type: "bogus", Quantity: 1,
	})
	require.Error(t, err)

	_, err = transactions.Create(ctx, TransactionCreateInput{
		ItemID: item.ID, Type: models.TransactionIn, Quantity: 0,
	})
	require.Error(t, err)

	_, err = transactions.Create(ctx, TransactionCreateInput{
		ItemID: "00000000-0000-0000-0000-000000000000", Type: models.TransactionIn, Quantity: 1,
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
