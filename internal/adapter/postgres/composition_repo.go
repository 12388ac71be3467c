package postgres

import (
	"context"

	"bodycomp/internal/domain"
)

// AddComposition inserts a body-composition record.
func (d *DB) AddComposition(ctx context.Context, rec domain.CompositionRecord) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO composition_records(user_id, percentage, method, note, created_at) VALUES($1, $2, $3, $4, $5) RETURNING id;",
		rec.UserID, rec.Percentage, string(rec.Method), rec.Note, rec.CreatedAt.UTC(),
	).Scan(&id)
	return id, err
}

// DeleteComposition removes a composition record by ID, scoped to a user.
func (d *DB) DeleteComposition(ctx context.Context, userID, id int64) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM composition_records WHERE id=$1 AND user_id=$2;", id, userID)
	return err
}

// ListRecentCompositions returns the user's most recent composition records up to limit.
func (d *DB) ListRecentCompositions(ctx context.Context, userID int64, limit int) ([]domain.CompositionRecord, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, percentage, method, note, created_at FROM composition_records WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2;",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.CompositionRecord, 0, limit)
	for rows.Next() {
		var c domain.CompositionRecord
		if err := rows.Scan(&c.ID, &c.Percentage, &c.Method, &c.Note, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.UserID = userID
		out = append(out, c)
	}
	return out, rows.Err()
}
