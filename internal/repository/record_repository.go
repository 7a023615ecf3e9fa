package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/store"
)

// RecordRepository persists time-bounded records. One instance serves one
// collection (announcements, events or schedules); events and schedules are
// scoped by department/semester/shift, announcements are global.
type RecordRepository struct {
	store      store.Store
	collection string
}

// NewRecordRepository creates a repository bound to one record collection.
func NewRecordRepository(s store.Store, collection string) *RecordRepository {
	return &RecordRepository{store: s, collection: collection}
}

func recordScope(rec *models.Record) string {
	if rec.Department == "" {
		return ""
	}
	scope := rec.Department
	if rec.Semester != "" {
		scope += "/" + rec.Semester
		if rec.Shift != "" {
			scope += "/" + rec.Shift
		}
	}
	return scope
}

// Create stores a new record, assigning id and timestamps.
func (r *RecordRepository) Create(ctx context.Context, rec *models.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := r.store.Put(ctx, r.collection, recordScope(rec), rec.ID, doc); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// Update overwrites an existing record in place.
func (r *RecordRepository) Update(ctx context.Context, rec *models.Record) error {
	rec.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := r.store.Put(ctx, r.collection, recordScope(rec), rec.ID, doc); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// Find returns one record by scope and id.
func (r *RecordRepository) Find(ctx context.Context, scope, id string) (*models.Record, error) {
	doc, err := r.store.Get(ctx, r.collection, scope, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	var rec models.Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

// List returns records in a scope, newest first. An empty scope lists the
// whole collection.
func (r *RecordRepository) List(ctx context.Context, scope string) ([]models.Record, error) {
	docs, err := r.store.List(ctx, r.collection, scope)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	records := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		var rec models.Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Delete removes one record from a scope.
func (r *RecordRepository) Delete(ctx context.Context, scope, id string) error {
	if err := r.store.Delete(ctx, r.collection, scope, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
