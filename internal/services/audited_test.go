package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocktrail/stocktrail/internal/database/testutil"
	"github.com/stocktrail/stocktrail/internal/models"
	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
)

type widget struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Secret   string `json:"-"`
}

type widgetInput struct {
	Name     string
	Quantity int
}

// fakeWidgetService is a minimal in-memory CrudService implementation.
type fakeWidgetService struct {
	store     map[string]widget
	nextID    int
	failGet   bool
	deleteErr error
}

func newFakeWidgetService() *fakeWidgetService {
	return &fakeWidgetService{store: make(map[string]widget)}
}

func (f *fakeWidgetService) Get(ctx context.Context, id string) (*widget, error) {
	if f.failGet {
		return nil, apperrors.ErrInternalServer
	}
	w, ok := f.store[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &w, nil
}

func (f *fakeWidgetService) Create(ctx context.Context, input widgetInput) (*widget, error) {
	f.nextID++
	w := widget{
		ID:       string(rune('a' + f.nextID - 1)),
		Name:     input.Name,
		Quantity: input.Quantity,
		Secret:   "hunter2",
	}
	f.store[w.ID] = w
	return &w, nil
}

func (f *fakeWidgetService) Update(ctx context.Context, id string, input widgetInput) (*widget, error) {
	w, ok := f.store[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	w.Name = input.Name
	w.Quantity = input.Quantity
	f.store[id] = w
	return &w, nil
}

func (f *fakeWidgetService) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.store[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.store, id)
	return nil
}

func newAuditedWidgets(t *testing.T) (*Audited[widget, widgetInput, widgetInput], *fakeWidgetService, *AuditService) {
	t.Helper()
	audit := newTestAuditService(t)
	inner := newFakeWidgetService()
	wrapped := NewAudited[widget, widgetInput, widgetInput](inner, audit, "widgets",
		func(w *widget) string { return w.ID })
	return wrapped, inner, audit
}

func TestAuditedCreateRecordsPostImage(t *testing.T) {
	wrapped, _, audit := newAuditedWidgets(t)
	ctx := context.Background()

	created, err := wrapped.Create(ctx, widgetInput{Name: "Widget", Quantity: 3})
	require.NoError(t, err)
	require.NotNil(t, created)

	logs, _, err := audit.List(ctx, AuditListOptions{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, models.AuditOpInsert, logs[0].Operation)
	require.Equal(t, "widgets", logs[0].TableName)
	require.Equal(t, created.ID, logs[0].RecordID)
	require.Equal(t, "Widget", logs[0].NewValues["name"])
	require.Nil(t, logs[0].OldValues)
	// json:"-" fields never reach the trail.
	_, leaked := logs[0].NewValues["Secret"]
	require.False(t, leaked)
}

func TestAuditedUpdateRecordsBothImages(t *testing.T) {
	wrapped, _, audit := newAuditedWidgets(t)
	ctx := context.Background()

	created, err := wrapped.Create(ctx, widgetInput{Name: "Widget", Quantity: 3})
	require.NoError(t, err)

	updated, err := wrapped.Update(ctx, created.ID, widgetInput{Name: "Widget", Quantity: 9})
	require.NoError(t, err)
	require.Equal(t, 9, updated.Quantity)

	logs, _, err := audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{Operation: models.AuditOpUpdate},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.EqualValues(t, 3, logs[0].OldValues["quantity"])
	require.EqualValues(t, 9, logs[0].NewValues["quantity"])
	require.Equal(t, []string{"quantity"}, toStringSlice(t, logs[0].Metadata["affected_fields"]))
}

func TestAuditedUpdateWithoutPreImage(t *testing.T) {
	wrapped, inner, audit := newAuditedWidgets(t)
	ctx := context.Background()

	created, err := wrapped.Create(ctx, widgetInput{Name: "Widget"})
	require.NoError(t, err)

	// Pre-image read failing must not block the update.
	inner.failGet = true
	updated, err := wrapped.Update(ctx, created.ID, widgetInput{Name: "Renamed"})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)

	logs, _, err := audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{Operation: models.AuditOpUpdate},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Nil(t, logs[0].OldValues)
	require.Equal(t, "Renamed", logs[0].NewValues["name"])
}

func TestAuditedDeleteRecordsPreImage(t *testing.T) {
	wrapped, _, audit := newAuditedWidgets(t)
	ctx := context.Background()

	created, err := wrapped.Create(ctx, widgetInput{Name: "Widget", Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, wrapped.Delete(ctx, created.ID))

	logs, _, err := audit.List(ctx, AuditListOptions{
		Filters: AuditFilters{Operation: models.AuditOpDelete},
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, created.ID, logs[0].RecordID)
	require.Equal(t, "Widget", logs[0].OldValues["name"])
	require.Nil(t, logs[0].NewValues)
}

func TestAuditedInnerFailureSkipsAudit(t *testing.T) {
	wrapped, inner, audit := newAuditedWidgets(t)
	ctx := context.Background()

	_, err := wrapped.Update(ctx, "missing", widgetInput{Name: "X"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	inner.deleteErr = apperrors.ErrInternalServer
	require.ErrorIs(t, wrapped.Delete(ctx, "missing"), apperrors.ErrInternalServer)

	logs, _, err := audit.List(ctx, AuditListOptions{})
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestAuditedReturnsResultWhenAuditFails(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	// Dropping the table makes every audit insert fail.
	require.NoError(t, db.Migrator().DropTable(&models.AuditLog{}))

	inner := newFakeWidgetService()
	wrapped := NewAudited[widget, widgetInput, widgetInput](inner, audit, "widgets",
		func(w *widget) string { return w.ID })
	ctx := context.Background()

	created, err := wrapped.Create(ctx, widgetInput{Name: "Widget"})
	require.NoError(t, err)
	require.NotNil(t, created)

	updated, err := wrapped.Update(ctx, created.ID, widgetInput{Name: "Renamed"})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)

	require.NoError(t, wrapped.Delete(ctx, created.ID))
	_, ok := inner.store[created.ID]
	require.False(t, ok)
}
