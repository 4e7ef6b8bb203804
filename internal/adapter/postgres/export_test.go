package postgres

import "context"

// Exec runs a raw statement outside any unit of work.
func (d *DB) Exec(ctx context.Context, query string) error {
	_, err := d.sql.ExecContext(ctx, query)
	return err
}
