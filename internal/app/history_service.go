package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"bodycomp/internal/domain"
	"bodycomp/internal/history"
)

// ErrEntryNotFound indicates that a history entry is not in the user's timeline.
var ErrEntryNotFound = errors.New("history entry not found")

// HistoryService keeps one running history.Aggregator per user and serves
// its merged timeline.
type HistoryService struct {
	records *RecordsService

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	aggs   map[int64]*history.Aggregator
}

// NewHistoryService creates a HistoryService reading from records.
func NewHistoryService(records *RecordsService) *HistoryService {
	ctx, cancel := context.WithCancel(context.Background())
	return &HistoryService{
		records: records,
		ctx:     ctx,
		cancel:  cancel,
		aggs:    make(map[int64]*history.Aggregator),
	}
}

// Item is a single timeline row as returned by Timeline.
type Item struct {
	Kind            history.Kind  `json:"kind"`
	ID              int64         `json:"id"`
	TimestampMillis int64         `json:"timestampMillis"`
	CreatedAt       time.Time     `json:"createdAt"`
	Percentage      *float64      `json:"percentage,omitempty"`
	Method          domain.Method `json:"method,omitempty"`
	Weight          *WeightPoint  `json:"weight,omitempty"`
	Note            string        `json:"note,omitempty"`
}

// WeightPoint is a weight converted to the requested display unit.
type WeightPoint struct {
	Value float64           `json:"value"`
	Unit  domain.WeightUnit `json:"unit"`
}

// Timeline returns the user's merged history, newest first, with weights
// converted to unit.
func (s *HistoryService) Timeline(ctx context.Context, userID int64, unit string) ([]Item, string, error) {
	u, err := domain.ParseWeightUnit(unit)
	if err != nil {
		return nil, "", err
	}
	view, err := s.ready(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	items := make([]Item, 0, len(view.Entries))
	for _, e := range view.Entries {
		it := Item{Kind: e.Kind(), ID: e.RecordID(), TimestampMillis: e.TimestampMillis()}
		switch e := e.(type) {
		case history.CompositionEntry:
			pct := e.Record.Percentage
			it.Percentage = &pct
			it.Method = e.Record.Method
			it.Note = e.Record.Note
			it.CreatedAt = e.Record.CreatedAt
		case history.WeightEntry:
			val := e.Record.Magnitude
			if e.Record.Unit != u {
				val = domain.ConvertWeight(val, e.Record.Unit, u)
			}
			it.Weight = &WeightPoint{Value: val, Unit: u}
			it.Note = e.Record.Note
			it.CreatedAt = e.Record.CreatedAt
		}
		items = append(items, it)
	}
	return items, view.ErrorMessage, nil
}

// Delete removes one timeline entry by kind and id.
func (s *HistoryService) Delete(ctx context.Context, userID int64, kind history.Kind, id int64) error {
	view, err := s.ready(ctx, userID)
	if err != nil {
		return err
	}
	for _, e := range view.Entries {
		if e.Kind() == kind && e.RecordID() == id {
			return s.aggregator(userID).Delete(ctx, e)
		}
	}
	return ErrEntryNotFound
}

// ClearError drops the aggregator's last delete error for the user.
func (s *HistoryService) ClearError(userID int64) {
	s.aggregator(userID).ClearError()
}

// Close stops every running aggregator.
func (s *HistoryService) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *HistoryService) aggregator(userID int64) *history.Aggregator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if agg, ok := s.aggs[userID]; ok {
		return agg
	}
	agg := history.NewAggregator(s.records.ForUser(userID))
	s.aggs[userID] = agg
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := agg.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("history: aggregator for user %d: %v", userID, err)
		}
	}()
	return agg
}

// ready waits until the user's aggregator has seen both record lists.
func (s *HistoryService) ready(ctx context.Context, userID int64) (history.View, error) {
	agg := s.aggregator(userID)
	if v := agg.View(); v.Ready {
		return v, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for v := range agg.Subscribe(ctx) {
		if v.Ready {
			return v, nil
		}
	}
	return history.View{}, ctx.Err()
}
