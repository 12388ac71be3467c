package postgres

import (
	"context"
	"database/sql"
	"errors"

	"bodycomp/internal/domain"
)

// GetProfile returns the user's profile, or nil if none is stored.
func (d *DB) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	p := domain.Profile{UserID: userID}
	err := d.sql.QueryRowContext(ctx, "SELECT age, sex FROM profiles WHERE user_id=$1;", userID).Scan(&p.Age, &p.Sex)
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
		"INSERT INTO profiles(user_id, age, sex) VALUES($1, $2, $3) ON CONFLICT(user_id) DO UPDATE SET age=EXCLUDED.age, sex=EXCLUDED.sex;",
		p.UserID, p.Age, string(p.Sex))
	return err
}
