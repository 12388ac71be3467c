package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bodycomp/internal/domain"
)

// AddWeightEvent inserts a new weight event.
func (d *DB) AddWeightEvent(ctx context.Context, rec domain.WeightRecord) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO weight_events(user_id, value, unit, note, created_at) VALUES(?, ?, ?, ?, ?)`,
		rec.UserID, rec.Magnitude, string(rec.Unit), rec.Note, millis(rec.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("add weight: insert: %w", err)
	}
	return res.LastInsertId()
}

// DeleteWeightEvent removes a weight event by ID, scoped to a user.
func (d *DB) DeleteWeightEvent(ctx context.Context, userID, id int64) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM weight_events WHERE id=? AND user_id=?`, id, userID)
	return err
}

// DeleteLatestWeightEvent removes the user's most recent weight event.
func (d *DB) DeleteLatestWeightEvent(ctx context.Context, userID int64) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		`DELETE FROM weight_events WHERE id = (SELECT id FROM weight_events WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT 1)`,
		userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// LatestWeightForLocalDay returns the most recent weight entry for a local calendar day.
func (d *DB) LatestWeightForLocalDay(ctx context.Context, userID int64, localDay string) (*domain.WeightRecord, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", localDay, time.Local)
	if err != nil {
		return nil, err
	}
	dayEnd := dayStart.Add(24 * time.Hour)

	var (
		e  domain.WeightRecord
		at int64
	)
	err = d.sql.QueryRowContext(ctx,
		`SELECT id, value, unit, note, created_at FROM weight_events
		 WHERE user_id=? AND created_at >= ? AND created_at < ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, millis(dayStart), millis(dayEnd),
	).Scan(&e.ID, &e.Magnitude, &e.Unit, &e.Note, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.UserID = userID
	e.CreatedAt = fromMillis(at)
	e.Day = localDay
	return &e, nil
}

// ListRecentWeightEvents returns the user's most recent weight events up to limit.
func (d *DB) ListRecentWeightEvents(ctx context.Context, userID int64, limit int) ([]domain.WeightRecord, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, value, unit, note, created_at FROM weight_events WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.WeightRecord, 0, limit)
	for rows.Next() {
		var (
			e  domain.WeightRecord
			at int64
		)
		if err := rows.Scan(&e.ID, &e.Magnitude, &e.Unit, &e.Note, &at); err != nil {
			return nil, fmt.Errorf("list weights: scan: %w", err)
		}
		e.UserID = userID
		e.CreatedAt = fromMillis(at)
		e.Day = e.CreatedAt.In(time.Local).Format("2006-01-02")
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddComposition inserts a body-composition record.
func (d *DB) AddComposition(ctx context.Context, rec domain.CompositionRecord) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO composition_records(user_id, percentage, method, note, created_at) VALUES(?, ?, ?, ?, ?)`,
		rec.UserID, rec.Percentage, string(rec.Method), rec.Note, millis(rec.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("add composition: insert: %w", err)
	}
	return res.LastInsertId()
}

// DeleteComposition removes a composition record by ID, scoped to a user.
func (d *DB) DeleteComposition(ctx context.Context, userID, id int64) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM composition_records WHERE id=? AND user_id=?`, id, userID)
	return err
}

// ListRecentCompositions returns the user's most recent composition records up to limit.
func (d *DB) ListRecentCompositions(ctx context.Context, userID int64, limit int) ([]domain.CompositionRecord, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, percentage, method, note, created_at FROM composition_records WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.CompositionRecord, 0, limit)
	for rows.Next() {
		var (
			c  domain.CompositionRecord
			at int64
		)
		if err := rows.Scan(&c.ID, &c.Percentage, &c.Method, &c.Note, &at); err != nil {
			return nil, fmt.Errorf("list compositions: scan: %w", err)
		}
		c.UserID = userID
		c.CreatedAt = fromMillis(at)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetProfile returns the user's profile, or nil if none is stored.
func (d *DB) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	p := domain.Profile{UserID: userID}
	err := d.sql.QueryRowContext(ctx, `SELECT age, sex FROM profiles WHERE user_id=?`, userID).Scan(&p.Age, &p.Sex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile inserts or replaces the user's profile.
func (d *DB) SaveProfile(ctx context.Context, p domain.Profile) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO profiles(user_id, age, sex) VALUES(?, ?, ?) ON CONFLICT(user_id) DO UPDATE SET age=excluded.age, sex=excluded.sex`,
		p.UserID, p.Age, string(p.Sex))
	return err
}
