package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocktrail/stocktrail/internal/database/testutil"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
)

func newTestItemService(t *testing.T) (*ItemService, *CategoryService, *LocationService) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	items, err := NewItemService(db)
	require.NoError(t, err)
	categories, err := NewCategoryService(db)
	require.NoError(t, err)
	locations, err := NewLocationService(db)
	require.NoError(t, err)
	return items, categories, locations
}

func TestItemCreateAndGet(t *testing.T) {
	items, categories, _ := newTestItemService(t)
	ctx := context.Background()

	category, err := categories.Create(ctx, CategoryCreateInput{Name: "Fasteners"})
	require.NoError(t, err)

	item, err := items.Create(ctx, ItemCreateInput{
		SKU:          "BOLT-M8",
		Name:         "M8 Bolt",
		Quantity:     100,
		UnitCost:     0.12,
		ReorderLevel: 20,
		CategoryID:   &category.ID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.True(t, item.IsActive)

	loaded, err := items.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "BOLT-M8", loaded.SKU)
	require.NotNil(t, loaded.Category)
	require.Equal(t, "Fasteners", loaded.Category.Name)
}

func TestItemCreateDuplicateSKU(t *testing.T) {
	items, _, _ := newTestItemService(t)
	ctx := context.Background()

	_, err := items.Create(ctx, ItemCreateInput{SKU: "DUP-1", Name: "First"})
	require.NoError(t, err)

	_, err = items.Create(ctx, ItemCreateInput{SKU: "DUP-1", Name: "Second"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.StatusCode)
}

func TestItemCreateUnknownCategory(t *testing.T) {
	items, _, _ := newTestItemService(t)
	bogus := "00000000-0000-0000-0000-000000000000"

	_, err := items.Create(context.Background(), ItemCreateInput{
		SKU: "X-1", Name: "X", CategoryID: &bogus,
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}

func TestItemUpdatePartial(t *testing.T) {
	items, _, _ := newTestItemService(t)
	ctx := context.Background()

	item, err := items.Create(ctx, ItemCreateInput{SKU: "U-1", Name: "Original", UnitCost: 1})
	require.NoError(t, err)

	newName := "Renamed"
	updated, err := items.Update(ctx, item.ID, ItemUpdateInput{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, "U-1", updated.SKU)
	require.Equal(t, 1.0, updated.UnitCost)
}

func TestItemUpdateNotFound(t *testing.T) {
	items, _, _ := newTestItemService(t)

	name := "X"
	_, err := items.Update(context.Background(), "00000000-0000-0000-0000-000000000000",
		ItemUpdateInput{Name: &name})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestItemListFilters(t *testing.T) {
	items, _, locations := newTestItemService(t)
	ctx := context.Background()

	location, err := locations.Create(ctx, LocationCreateInput{Name: "Shelf A"})
	require.NoError(t, err)

	_, err = items.Create(ctx, ItemCreateInput{
		SKU: "A-1", Name: "Anchor", Quantity: 2, ReorderLevel: 5, LocationID: &location.ID,
	})
	require.NoError(t, err)
	_, err = items.Create(ctx, ItemCreateInput{SKU: "B-1", Name: "Bracket", Quantity: 50})
	require.NoError(t, err)

	results, total, err := items.List(ctx, ItemListOptions{Search: "anch"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Anchor", results[0].Name)

	results, total, err = items.List(ctx, ItemListOptions{LowStock: true})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "A-1", results[0].SKU)

	results, total, err = items.List(ctx, ItemListOptions{LocationID: location.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "A-1", results[0].SKU)
}

func TestItemDeleteRemovesHistory(t *testing.T) {
	items, _, _ := newTestItemService(t)
	ctx := context.Background()

	item, err := items.Create(ctx, ItemCreateInput{SKU: "D-1", Name: "Doomed"})
	require.NoError(t, err)

	require.NoError(t, items.Delete(ctx, item.ID))

	_, err = items.Get(ctx, item.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.ErrorIs(t, items.Delete(ctx, item.ID), apperrors.ErrNotFound)
}

func TestCategoryDeleteDetachesItems(t *testing.T) {
	items, categories, _ := newTestItemService(t)
	ctx := context.Background()

	category, err := categories.Create(ctx, CategoryCreateInput{Name: "Doomed"})
	require.NoError(t, err)
	item, err := items.Create(ctx, ItemCreateInput{SKU: "C-1", Name: "Kept", CategoryID: &category.ID})
	require.NoError(t, err)

	require.NoError(t, categories.Delete(ctx, category.ID))

	reloaded, err := items.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.CategoryID)
}

func TestCategoryDuplicateName(t *testing.T) {
	_, categories, _ := newTestItemService(t)
	ctx := context.Background()

	_, err := categories.Create(ctx, CategoryCreateInput{Name: "Unique"})
	require.NoError(t, err)

	_, err = categories.Create(ctx, CategoryCreateInput{Name: "Unique"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.StatusCode)
}
