package domain

import (
	"context"
	"errors"
	"math"
	"time"
)

// CompositionRecord is a body-fat estimate. Records are immutable once
// stored and are removed only by id.
type CompositionRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	Percentage float64   `json:"percentage"`
	Method     Method    `json:"method"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TimestampMillis is the record's creation time in Unix milliseconds.
func (r CompositionRecord) TimestampMillis() int64 { return r.CreatedAt.UnixMilli() }

// Validate checks that the percentage lies in the open interval (0, 100)
// and that the method is known.
func (r CompositionRecord) Validate() error {
	p := r.Percentage
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 || p >= 100 {
		return errors.New("percentage must be within (0, 100)")
	}
	if !r.Method.Valid() {
		return errors.New("unknown method")
	}
	return nil
}

// CompositionRepository is the port for body-composition persistence.
type CompositionRepository interface {
	AddComposition(ctx context.Context, rec CompositionRecord) (int64, error)
	DeleteComposition(ctx context.Context, userID, id int64) error
	ListRecentCompositions(ctx context.Context, userID int64, limit int) ([]CompositionRecord, error)
}
