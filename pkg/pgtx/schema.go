package pgtx

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schema string

// Migrate applies the idempotent schema.
func (t *Transactor) Migrate(ctx context.Context) error {
	_, err := t.pool.Exec(ctx, schema)
	return err
}
