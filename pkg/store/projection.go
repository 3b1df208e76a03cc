package store

import (
	"context"
	"errors"
)

// Projected fans one logical entity out to several key schemes so the same
// fact can be looked up under more than one derivation. A logical Put issues
// one upsert per projection in declaration order; each is independently
// idempotent and there is no cross-projection transaction. A crash between
// writes leaves the projections transiently inconsistent until the next full
// Put of the same logical record converges them.
type Projected[T any] struct {
	projections []*Table[T]
}

// NewProjected wires the projections of one logical entity. Reads go through
// the individual tables; Projected only owns the fan-out write.
func NewProjected[T any](projections ...*Table[T]) *Projected[T] {
	return &Projected[T]{projections: projections}
}

// Put upserts the record under every projection. On failure the remaining
// projections are skipped; retrying the whole Put converges all of them.
func (p *Projected[T]) Put(ctx context.Context, record T) error {
	if len(p.projections) == 0 {
		return errors.New("no_projections")
	}
	for _, table := range p.projections {
		if err := table.Put(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the record's row from every projection.
func (p *Projected[T]) Delete(ctx context.Context, record T) error {
	for _, table := range p.projections {
		k := table.key(record)
		if err := table.Delete(ctx, k.Partition, k.Row); err != nil {
			return err
		}
	}
	return nil
}
