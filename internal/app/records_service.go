package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"bodycomp/internal/domain"
	"bodycomp/internal/state"
)

// RecordsService publishes each user's composition and weight records as
// live newest-first lists. Every write made through it re-reads the
// affected list from the repository and publishes the result. A failed
// read is published as a load error and retried with backoff until it
// succeeds.
type RecordsService struct {
	comps    domain.CompositionRepository
	weights  domain.WeightRepository
	profiles domain.ProfileRepository
	limit    int
	retry    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	feeds map[int64]*feed
}

// RecordsOption configures a RecordsService.
type RecordsOption func(*RecordsService)

// WithRetryInterval sets the first delay before a failed list read is
// retried. Later retries double it up to maxRetryInterval.
func WithRetryInterval(d time.Duration) RecordsOption {
	return func(s *RecordsService) {
		if d > 0 {
			s.retry = d
		}
	}
}

const maxRetryInterval = 30 * time.Second

// NewRecordsService creates a RecordsService. limit caps how many records
// of each kind a feed holds.
func NewRecordsService(cr domain.CompositionRepository, wr domain.WeightRepository, pr domain.ProfileRepository, limit int, opts ...RecordsOption) *RecordsService {
	if limit <= 0 {
		limit = 200
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &RecordsService{
		comps:    cr,
		weights:  wr,
		profiles: pr,
		limit:    limit,
		retry:    time.Second,
		ctx:      ctx,
		cancel:   cancel,
		feeds:    make(map[int64]*feed),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops pending retries.
func (s *RecordsService) Close() {
	s.cancel()
	s.wg.Wait()
}

// RecentCompositions reads the user's latest composition records straight
// from the repository.
func (s *RecordsService) RecentCompositions(ctx context.Context, userID int64, limit int) ([]domain.CompositionRecord, error) {
	return s.comps.ListRecentCompositions(ctx, userID, limit)
}

// loadStatus holds the last read error of each list; nil means healthy.
type loadStatus struct {
	comps   error
	weights error
}

func (l loadStatus) err() error {
	return errors.Join(l.comps, l.weights)
}

type feed struct {
	comps   *listFeed[domain.CompositionRecord]
	weights *listFeed[domain.WeightRecord]
	status  *state.Container[loadStatus]
}

// ForUser returns the domain.Persistence view for one user.
func (s *RecordsService) ForUser(userID int64) *UserRecords {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[userID]
	if !ok {
		f = &feed{status: state.New(func() loadStatus { return loadStatus{} })}
		f.comps = newListFeed(s, "compositions", userID,
			func(ctx context.Context) ([]domain.CompositionRecord, error) {
				return s.comps.ListRecentCompositions(ctx, userID, s.limit)
			},
			func(err error) {
				f.status.Update(func(l loadStatus) loadStatus { l.comps = err; return l })
			})
		f.weights = newListFeed(s, "weights", userID,
			func(ctx context.Context) ([]domain.WeightRecord, error) {
				return s.weights.ListRecentWeightEvents(ctx, userID, s.limit)
			},
			func(err error) {
				f.status.Update(func(l loadStatus) loadStatus { l.weights = err; return l })
			})
		s.feeds[userID] = f
	}
	return &UserRecords{svc: s, userID: userID, feed: f}
}

// UserRecords implements domain.Persistence for a single user.
type UserRecords struct {
	svc    *RecordsService
	userID int64
	feed   *feed
}

var _ domain.Persistence = (*UserRecords)(nil)

// SaveComposition validates and stores rec under this user.
func (u *UserRecords) SaveComposition(ctx context.Context, rec domain.CompositionRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	rec.UserID = u.userID
	id, err := u.svc.comps.AddComposition(ctx, rec)
	if err != nil {
		return 0, err
	}
	_ = u.feed.comps.refresh(ctx)
	return id, nil
}

// SaveWeight validates and stores rec under this user.
func (u *UserRecords) SaveWeight(ctx context.Context, rec domain.WeightRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	rec.UserID = u.userID
	id, err := u.svc.weights.AddWeightEvent(ctx, rec)
	if err != nil {
		return 0, err
	}
	_ = u.feed.weights.refresh(ctx)
	return id, nil
}

// DeleteComposition removes one composition record.
func (u *UserRecords) DeleteComposition(ctx context.Context, id int64) error {
	if err := u.svc.comps.DeleteComposition(ctx, u.userID, id); err != nil {
		return err
	}
	_ = u.feed.comps.refresh(ctx)
	return nil
}

// DeleteWeight removes one weight record.
func (u *UserRecords) DeleteWeight(ctx context.Context, id int64) error {
	if err := u.svc.weights.DeleteWeightEvent(ctx, u.userID, id); err != nil {
		return err
	}
	_ = u.feed.weights.refresh(ctx)
	return nil
}

// ObserveCompositions streams the user's composition records, newest
// first. Nothing is sent until the list has been read successfully once.
func (u *UserRecords) ObserveCompositions(ctx context.Context) <-chan []domain.CompositionRecord {
	return u.feed.comps.observe(ctx)
}

// ObserveWeights streams the user's weight records, newest first. Nothing
// is sent until the list has been read successfully once.
func (u *UserRecords) ObserveWeights(ctx context.Context) <-chan []domain.WeightRecord {
	return u.feed.weights.observe(ctx)
}

// ObserveLoadErrors streams the current read failure of either list, nil
// once both read cleanly again.
func (u *UserRecords) ObserveLoadErrors(ctx context.Context) <-chan error {
	out := make(chan error)
	in := u.feed.status.Subscribe(ctx)
	go func() {
		defer close(out)
		for l := range in {
			select {
			case out <- l.err():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// GetProfile returns the stored profile, or nil when there is none.
func (u *UserRecords) GetProfile(ctx context.Context) (*domain.Profile, error) {
	return u.svc.profiles.GetProfile(ctx, u.userID)
}

// RefreshWeights republishes the weight list after a change made directly
// on the repository.
func (u *UserRecords) RefreshWeights(ctx context.Context) {
	_ = u.feed.weights.refresh(ctx)
}

type listState[T any] struct {
	items  []T
	loaded bool
}

// listFeed is one repository list kept current in a container.
type listFeed[T any] struct {
	svc    *RecordsService
	name   string
	userID int64
	load   func(context.Context) ([]T, error)
	report func(error)

	mu       sync.Mutex
	retrying bool
	store    *state.Container[listState[T]]
}

func newListFeed[T any](svc *RecordsService, name string, userID int64, load func(context.Context) ([]T, error), report func(error)) *listFeed[T] {
	return &listFeed[T]{
		svc:    svc,
		name:   name,
		userID: userID,
		load:   load,
		report: report,
		store:  state.New(func() listState[T] { return listState[T]{} }),
	}
}

func (f *listFeed[T]) observe(ctx context.Context) <-chan []T {
	if !f.store.Current().loaded {
		_ = f.refresh(ctx)
	}
	in := f.store.Subscribe(ctx)
	out := make(chan []T)
	go func() {
		defer close(out)
		for st := range in {
			if !st.loaded {
				continue
			}
			select {
			case out <- st.items:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// refresh re-reads the list. On failure the error is reported and a retry
// loop is started unless one is already running.
func (f *listFeed[T]) refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, err := f.load(ctx)
	if err != nil {
		log.Printf("records: list %s for user %d: %v", f.name, f.userID, err)
		f.report(err)
		if !f.retrying {
			f.retrying = true
			f.svc.wg.Add(1)
			go f.retryLoop()
		}
		return err
	}
	f.store.Update(func(listState[T]) listState[T] { return listState[T]{items: list, loaded: true} })
	f.report(nil)
	return nil
}

func (f *listFeed[T]) retryLoop() {
	defer f.svc.wg.Done()
	delay := f.svc.retry
	for {
		select {
		case <-f.svc.ctx.Done():
			f.mu.Lock()
			f.retrying = false
			f.mu.Unlock()
			return
		case <-time.After(delay):
		}

		f.mu.Lock()
		list, err := f.load(f.svc.ctx)
		if err == nil {
			f.store.Update(func(listState[T]) listState[T] { return listState[T]{items: list, loaded: true} })
			f.report(nil)
			f.retrying = false
			f.mu.Unlock()
			return
		}
		f.report(err)
		f.mu.Unlock()

		delay *= 2
		if delay > maxRetryInterval {
			delay = maxRetryInterval
		}
	}
}
