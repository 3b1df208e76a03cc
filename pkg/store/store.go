// Package store provides a partitioned entity store: typed records addressed
// by a (partition, row) key pair over a single physical table, with point
// lookup, unconditional upsert and partition-scoped scans. There are no
// multi-key transactions; callers that need several rows to agree rely on
// idempotent re-writes converging.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound is returned by point lookups for keys with no row.
var ErrNotFound = errors.New("entity_not_found")

// Key addresses one row within a logical table.
type Key struct {
	Partition string
	Row       string
}

// KeyFunc derives the storage key for a record. Each logical table is
// constructed with an explicit projection function rather than deriving keys
// from record fields by reflection.
type KeyFunc[T any] func(record T) Key

// Row is the physical persistence record shared by all logical tables.
type Row struct {
	Table        string         `gorm:"column:table_name;primaryKey"`
	PartitionKey string         `gorm:"column:partition_key;primaryKey"`
	RowKey       string         `gorm:"column:row_key;primaryKey"`
	Payload      datatypes.JSON `gorm:"column:payload;not null"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
}

// TableName sets the database table name.
func (Row) TableName() string { return "entity_rows" }

// Table is a typed view over one logical table.
type Table[T any] struct {
	db   *gorm.DB
	name string
	key  KeyFunc[T]
}

// NewTable constructs a typed table with its key projection.
func NewTable[T any](db *gorm.DB, name string, key KeyFunc[T]) *Table[T] {
	return &Table[T]{db: db, name: name, key: key}
}

// Get performs a point lookup. Missing rows return ErrNotFound; driver errors
// propagate un-wrapped.
func (t *Table[T]) Get(ctx context.Context, partition, row string) (*T, error) {
	var stored Row
	err := t.db.WithContext(ctx).Raw(
		`SELECT table_name, partition_key, row_key, payload, updated_at
		 FROM entity_rows
		 WHERE table_name = ? AND partition_key = ? AND row_key = ?`,
		t.name,
		partition,
		row,
	).Scan(&stored).Error
	if err != nil {
		return nil, err
	}
	if stored.RowKey == "" {
		return nil, ErrNotFound
	}
	record := new(T)
	if err := json.Unmarshal(stored.Payload, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Put upserts one record under its derived key. The write is
// create-or-replace scoped to a single (partition, row); repeating it with
// the same record is a no-op at the data level.
func (t *Table[T]) Put(ctx context.Context, record T) error {
	k := t.key(record)
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return t.db.WithContext(ctx).Exec(
		`INSERT INTO entity_rows (table_name, partition_key, row_key, payload, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (table_name, partition_key, row_key)
		 DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		t.name,
		k.Partition,
		k.Row,
		datatypes.JSON(payload),
		time.Now().UTC(),
	).Error
}

// Scan returns every record in one partition, ordered by row key. The result
// is a finite snapshot; re-issue the scan to restart.
func (t *Table[T]) Scan(ctx context.Context, partition string) ([]T, error) {
	var stored []Row
	err := t.db.WithContext(ctx).Raw(
		`SELECT table_name, partition_key, row_key, payload, updated_at
		 FROM entity_rows
		 WHERE table_name = ? AND partition_key = ?
		 ORDER BY row_key ASC`,
		t.name,
		partition,
	).Scan(&stored).Error
	if err != nil {
		return nil, err
	}
	return decodeRows[T](stored)
}

// ScanAll returns every record in the logical table across all partitions,
// ordered by (partition, row). Reserved for reconciliation passes that must
// visit every partition.
func (t *Table[T]) ScanAll(ctx context.Context) ([]T, error) {
	var stored []Row
	err := t.db.WithContext(ctx).Raw(
		`SELECT table_name, partition_key, row_key, payload, updated_at
		 FROM entity_rows
		 WHERE table_name = ?
		 ORDER BY partition_key ASC, row_key ASC`,
		t.name,
	).Scan(&stored).Error
	if err != nil {
		return nil, err
	}
	return decodeRows[T](stored)
}

// Delete removes one row. Lifecycle records are soft-deleted by their owners
// and never pass through here; this exists for projection repair and tests.
func (t *Table[T]) Delete(ctx context.Context, partition, row string) error {
	return t.db.WithContext(ctx).Exec(
		`DELETE FROM entity_rows
		 WHERE table_name = ? AND partition_key = ? AND row_key = ?`,
		t.name,
		partition,
		row,
	).Error
}

func decodeRows[T any](stored []Row) ([]T, error) {
	records := make([]T, 0, len(stored))
	for _, row := range stored {
		var record T
		if err := json.Unmarshal(row.Payload, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
