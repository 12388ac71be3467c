package app

import (
	"context"
	"time"

	"bodycomp/internal/domain"
)

// WeightService encapsulates weight-tracking use cases.
type WeightService struct {
	repo    domain.WeightRepository
	records *RecordsService
}

// NewWeightService creates a WeightService backed by the given repository.
// Writes go through records so that live history views see them.
func NewWeightService(repo domain.WeightRepository, records *RecordsService) *WeightService {
	return &WeightService{repo: repo, records: records}
}

// GetTodayWeight returns the latest weight entry for the given local day.
func (s *WeightService) GetTodayWeight(ctx context.Context, userID int64, today string) (*domain.WeightRecord, error) {
	return s.repo.LatestWeightForLocalDay(ctx, userID, today)
}

// RecordWeight validates and stores a new weight measurement, returning the
// latest entry for today after the insert.
func (s *WeightService) RecordWeight(ctx context.Context, userID int64, value float64, unit, note string) (*domain.WeightRecord, string, error) {
	u, err := domain.ParseWeightUnit(unit)
	if err != nil {
		return nil, "", err
	}
	now := time.Now()
	today := now.In(time.Local).Format("2006-01-02")
	rec := domain.WeightRecord{Magnitude: value, Unit: u, Note: note, CreatedAt: now}
	if err := rec.Validate(); err != nil {
		return nil, "", err
	}
	if _, err := s.records.ForUser(userID).SaveWeight(ctx, rec); err != nil {
		return nil, today, err
	}
	entry, err := s.repo.LatestWeightForLocalDay(ctx, userID, today)
	return entry, today, err
}

// ListRecent returns the most recent weight events up to limit.
func (s *WeightService) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.WeightRecord, error) {
	return s.repo.ListRecentWeightEvents(ctx, userID, limit)
}

// UndoLast deletes the most recent weight event and returns the new latest
// entry for today.
func (s *WeightService) UndoLast(ctx context.Context, userID int64) (bool, *domain.WeightRecord, string, error) {
	today := time.Now().In(time.Local).Format("2006-01-02")
	deleted, err := s.repo.DeleteLatestWeightEvent(ctx, userID)
	if err != nil {
		return false, nil, today, err
	}
	if deleted {
		s.records.ForUser(userID).RefreshWeights(ctx)
	}
	entry, _ := s.repo.LatestWeightForLocalDay(ctx, userID, today)
	return deleted, entry, today, nil
}
