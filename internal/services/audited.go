package services

import "context"

// CrudService is the contract an entity service must satisfy to be wrapped
// with audit logging. T is the entity type, C and U the create and update
// input types.
type CrudService[T any, C any, U any] interface {
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, input C) (*T, error)
	Update(ctx context.Context, id string, input U) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Audited decorates a CrudService with audit trail writes. Reads pass through
// untouched; writes record post- and pre-images around the inner call. The
// decorated methods always return whatever the inner service returned, even
// when the audit write fails.
type Audited[T any, C any, U any] struct {
	inner    CrudService[T, C, U]
	audit    *AuditService
	table    string
	recordID func(*T) string
}

// NewAudited wraps an entity service so its mutations land in the audit trail.
func NewAudited[T any, C any, U any](inner CrudService[T, C, U], audit *AuditService, table string, recordID func(*T) string) *Audited[T, C, U] {
	return &Audited[T, C, U]{
		inner:    inner,
		audit:    audit,
		table:    table,
		recordID: recordID,
	}
}

// Get delegates to the inner service. Reads are not audited.
func (a *Audited[T, C, U]) Get(ctx context.Context, id string) (*T, error) {
	return a.inner.Get(ctx, id)
}

// Create runs the inner create and records the post-image on success.
func (a *Audited[T, C, U]) Create(ctx context.Context, input C) (*T, error) {
	created, err := a.inner.Create(ctx, input)
	if err != nil || created == nil {
		return created, err
	}

	recordAudit(a.audit.LogCreate(ctx, a.table, a.recordID(created), entitySnapshot(created), nil))
	return created, nil
}

// Update captures the pre-image before delegating, then records both images.
// The pre-image read is not transactional with the inner update, so a
// concurrent write between the two can leave a stale old-values snapshot.
func (a *Audited[T, C, U]) Update(ctx context.Context, id string, input U) (*T, error) {
	var oldValues map[string]any
	if before, err := a.inner.Get(ctx, id); err == nil && before != nil {
		oldValues = entitySnapshot(before)
	}

	updated, err := a.inner.Update(ctx, id, input)
	if err != nil || updated == nil {
		return updated, err
	}

	recordAudit(a.audit.LogUpdate(ctx, a.table, a.recordID(updated), oldValues, entitySnapshot(updated), nil))
	return updated, nil
}

// Delete captures the pre-image before delegating, then records it.
func (a *Audited[T, C, U]) Delete(ctx context.Context, id string) error {
	var (
		oldValues map[string]any
		recordID  = id
	)
	if before, err := a.inner.Get(ctx, id); err == nil && before != nil {
		oldValues = entitySnapshot(before)
		recordID = a.recordID(before)
	}

	if err := a.inner.Delete(ctx, id); err != nil {
		return err
	}

	recordAudit(a.audit.LogDelete(ctx, a.table, recordID, oldValues, nil))
	return nil
}
