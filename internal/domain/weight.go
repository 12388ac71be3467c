package domain

import (
	"context"
	"errors"
	"math"
	"time"
)

// WeightRecord represents a single weight measurement.
type WeightRecord struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Day       string     `json:"day"`
	Magnitude float64    `json:"value"`
	Unit      WeightUnit `json:"unit"`
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TimestampMillis is the record's creation time in Unix milliseconds.
func (r WeightRecord) TimestampMillis() int64 { return r.CreatedAt.UnixMilli() }

// Validate checks the magnitude and unit.
func (r WeightRecord) Validate() error {
	if math.IsNaN(r.Magnitude) || math.IsInf(r.Magnitude, 0) || r.Magnitude <= 0 {
		return errors.New("value must be > 0")
	}
	if _, err := ParseWeightUnit(string(r.Unit)); err != nil {
		return err
	}
	return nil
}

// WeightRepository is the port for weight persistence.
type WeightRepository interface {
	AddWeightEvent(ctx context.Context, rec WeightRecord) (int64, error)
	DeleteWeightEvent(ctx context.Context, userID, id int64) error
	DeleteLatestWeightEvent(ctx context.Context, userID int64) (bool, error)
	LatestWeightForLocalDay(ctx context.Context, userID int64, localDay string) (*WeightRecord, error)
	ListRecentWeightEvents(ctx context.Context, userID int64, limit int) ([]WeightRecord, error)
}
