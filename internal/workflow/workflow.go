// Package workflow implements the guided skinfold entry workflow: per-site
// text buffers with live validation, an explicit calculate step, and the
// save-or-guest decision for the resulting composition record.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"bodycomp/internal/bodyfat"
	"bodycomp/internal/domain"
	"bodycomp/internal/state"
)

var (
	// ErrIncomplete is returned by Calculate when a field is missing or invalid.
	ErrIncomplete = errors.New("fields incomplete")
	// ErrCalculation is returned by Calculate when the estimate is not a
	// usable percentage.
	ErrCalculation = errors.New("calculation failed")
	// ErrSiteIndex is returned by SetSite for an index outside the protocol.
	ErrSiteIndex = errors.New("site index out of range")
	// ErrClosed is returned by operations on a closed workflow.
	ErrClosed = errors.New("workflow closed")
)

// Persistence is the subset of domain.Persistence a workflow uses.
type Persistence interface {
	SaveComposition(ctx context.Context, rec domain.CompositionRecord) (int64, error)
	GetProfile(ctx context.Context) (*domain.Profile, error)
}

// Workflow owns one State container. All methods are safe to call from
// multiple goroutines; operations run one at a time, so a Calculate never
// interleaves with an edit. After Close every operation is a no-op.
type Workflow struct {
	protocol Protocol
	store    *state.Container[State]
	persist  Persistence
	userID   int64
	clock    *monotonicClock

	opMu   sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithClock replaces the wall clock used to timestamp results.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.clock = &monotonicClock{now: now} }
}

// WithUserID stamps created records with the owning user.
func WithUserID(id int64) Option {
	return func(w *Workflow) { w.userID = id }
}

// New starts a workflow for protocol p. When allowPersist is false the
// workflow runs in guest mode and never saves. persist may be nil; if set,
// its profile is read once to pre-fill age and sex.
func New(ctx context.Context, p Protocol, allowPersist bool, persist Persistence, opts ...Option) *Workflow {
	w := &Workflow{
		protocol: p,
		persist:  persist,
		clock:    wallClock,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))

	sex, ageText := domain.SexMale, ""
	if persist != nil {
		profile, err := persist.GetProfile(ctx)
		if err != nil {
			log.Printf("workflow: profile prefill: %v", err)
		}
		if profile != nil {
			if _, err := domain.ParseSex(string(profile.Sex)); err == nil {
				sex = profile.Sex
			}
			if profile.Age > 0 {
				ageText = strconv.Itoa(profile.Age)
			}
		}
	}

	w.store = state.New(func() State {
		s := initialState(p, sex, allowPersist)
		if ageText != "" {
			s.AgeText = ageText
			s.Age, _ = parseAge(ageText)
		}
		return s
	})
	return w
}

// Protocol returns the protocol the workflow was started with.
func (w *Workflow) Protocol() Protocol { return w.protocol }

// State returns the current snapshot.
func (w *Workflow) State() State { return w.store.Current() }

// Subscribe follows every snapshot from the current one on.
func (w *Workflow) Subscribe(ctx context.Context) <-chan State {
	return w.store.Subscribe(ctx)
}

// SetAge stores the digits of text as the age buffer.
func (w *Workflow) SetAge(text string) State {
	text = digitsOnly(text)
	return w.edit(func(s State) State {
		s.AgeText = text
		s.Age, _ = parseAge(text)
		s.ErrorMessage = ""
		return s.revalidate()
	})
}

// SetSite stores the digits and first decimal point of text in buffer i.
func (w *Workflow) SetSite(i int, text string) (State, error) {
	if i < 0 || i >= w.protocol.SiteCount() {
		return w.store.Current(), fmt.Errorf("%w: %d", ErrSiteIndex, i)
	}
	text = decimalOnly(text)
	w.opMu.Lock()
	defer w.opMu.Unlock()
	if w.closed {
		return w.store.Current(), ErrClosed
	}
	return w.store.Update(func(s State) State {
		s = s.cloneSites()
		v, ok := parseSkinfold(text)
		s.Sites[i].Text = text
		s.Sites[i].Value = v
		s.Sites[i].Valid = ok
		s.ErrorMessage = ""
		return s.revalidate()
	}), nil
}

// SetSex switches the regression constants. For protocols whose site set
// depends on sex the site identities are relabelled while the text buffers
// stay in place, so a value typed for one site carries over positionally.
func (w *Workflow) SetSex(sex domain.Sex) State {
	labels := w.protocol.Sites(sex)
	return w.edit(func(s State) State {
		s = s.cloneSites()
		s.Sex = sex
		for i := range s.Sites {
			s.Sites[i].Site = labels[i]
		}
		s.ErrorMessage = ""
		return s.revalidate()
	})
}

// SetNote attaches free text to the next calculated record.
func (w *Workflow) SetNote(note string) State {
	return w.edit(func(s State) State {
		s.Note = note
		return s
	})
}

// edit applies one update unless the workflow is closed.
func (w *Workflow) edit(transform func(State) State) State {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	if w.closed {
		return w.store.Current()
	}
	return w.store.Update(transform)
}

// Calculate runs the estimate. It does nothing but report ErrIncomplete
// unless every field is valid. A successful estimate becomes the Result
// and, outside guest mode, is handed to persistence without waiting for the
// save to finish.
func (w *Workflow) Calculate() error {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	if w.closed {
		return ErrClosed
	}

	cur := w.store.Current()
	if !cur.Complete {
		w.store.Update(func(s State) State {
			s.ErrorMessage = ErrIncomplete.Error()
			return s
		})
		return ErrIncomplete
	}

	w.store.Update(func(s State) State {
		s.Phase = PhaseCalculating
		s.Calculating = true
		s.ErrorMessage = ""
		return s
	})

	pct, ok := w.estimate(cur)
	if !ok {
		w.store.Update(func(s State) State {
			s.Phase = PhaseFailed
			s.Calculating = false
			s.Result = nil
			s.ResultVisible = false
			s.ErrorMessage = ErrCalculation.Error()
			return s
		})
		return ErrCalculation
	}

	rec := &domain.CompositionRecord{
		UserID:     w.userID,
		Percentage: pct,
		Method:     w.protocol.Method,
		Note:       cur.Note,
		CreatedAt:  w.clock.Now(),
	}
	w.store.Update(func(s State) State {
		s.Phase = PhaseResult
		s.Calculating = false
		s.Result = rec
		s.ResultVisible = true
		return s
	})

	if cur.AllowPersist && w.persist != nil {
		w.save(rec)
	}
	return nil
}

func (w *Workflow) estimate(s State) (pct float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("workflow: %s estimate panicked: %v", w.protocol.Name, r)
			pct, ok = 0, false
		}
	}()
	pct = w.protocol.Estimate(s.values(), float64(s.Age), s.Sex)
	return pct, bodyfat.Valid(pct)
}

// save stores rec in the background. A failure is shown only while rec is
// still the displayed result.
func (w *Workflow) save(rec *domain.CompositionRecord) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if _, err := w.persist.SaveComposition(w.ctx, *rec); err != nil {
			log.Printf("workflow: save composition: %v", err)
			msg := "save failed: " + err.Error()
			w.store.Update(func(s State) State {
				if s.Result == rec {
					s.ErrorMessage = msg
				}
				return s
			})
		}
	}()
}

// Reset clears every field and the result. Sex and the persist mode carry
// over.
func (w *Workflow) Reset() State {
	return w.edit(func(s State) State {
		return initialState(w.protocol, s.Sex, s.AllowPersist)
	})
}

// CloseResult hides the result without discarding it.
func (w *Workflow) CloseResult() State {
	return w.edit(func(s State) State {
		s.ResultVisible = false
		if s.Phase == PhaseResult {
			s.Phase = PhaseClosed
		}
		return s
	})
}

// ClearError drops the current error message.
func (w *Workflow) ClearError() State {
	return w.edit(func(s State) State {
		s.ErrorMessage = ""
		return s
	})
}

// Wait blocks until every save issued so far has finished.
func (w *Workflow) Wait() {
	w.wg.Wait()
}

// Close abandons the workflow. Later operations change nothing and
// in-flight saves see a cancelled context.
func (w *Workflow) Close() {
	w.opMu.Lock()
	w.closed = true
	w.opMu.Unlock()
	w.cancel()
	w.wg.Wait()
}

// Closed reports whether Close has been called.
func (w *Workflow) Closed() bool {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	return w.closed
}

// monotonicClock never hands out a time earlier than the previous one, so
// records keep a non-decreasing creation order even if the wall clock steps
// back.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

var wallClock = &monotonicClock{now: time.Now}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
