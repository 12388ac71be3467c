package history

import (
	"context"
	"fmt"

	"bodycomp/internal/domain"
	"bodycomp/internal/state"
)

// Source is the part of domain.Persistence the aggregator reads from and
// forwards deletions to.
type Source interface {
	ObserveCompositions(ctx context.Context) <-chan []domain.CompositionRecord
	ObserveWeights(ctx context.Context) <-chan []domain.WeightRecord
	DeleteComposition(ctx context.Context, id int64) error
	DeleteWeight(ctx context.Context, id int64) error
}

// View is the aggregator's published snapshot.
type View struct {
	Entries      []Entry
	ErrorMessage string
	// Ready is set once both sources have delivered their first list or a
	// load failure has been reported.
	Ready bool
}

// Aggregator keeps a merged timeline current while Run is active. It never
// modifies the lists it receives.
type Aggregator struct {
	src   Source
	store *state.Container[View]
}

// NewAggregator creates an aggregator over src.
func NewAggregator(src Source) *Aggregator {
	return &Aggregator{
		src:   src,
		store: state.New(func() View { return View{} }),
	}
}

// View returns the latest merged timeline.
func (a *Aggregator) View() View { return a.store.Current() }

// Subscribe follows every published View from the current one on.
func (a *Aggregator) Subscribe(ctx context.Context) <-chan View {
	return a.store.Subscribe(ctx)
}

// LoadErrorSource is implemented by sources that can report that a record
// list could not be read. The stream carries the current failure, nil once
// the lists read cleanly again.
type LoadErrorSource interface {
	ObserveLoadErrors(ctx context.Context) <-chan error
}

// Run follows both record streams and re-merges the full lists whenever
// either changes. When src is also a LoadErrorSource, a read failure is
// shown as "load failed: ..." and the view counts as ready so callers are
// not left waiting. It returns when ctx is done or both streams have
// closed.
func (a *Aggregator) Run(ctx context.Context) error {
	compCh := a.src.ObserveCompositions(ctx)
	weightCh := a.src.ObserveWeights(ctx)
	var errCh <-chan error
	if les, ok := a.src.(LoadErrorSource); ok {
		errCh = les.ObserveLoadErrors(ctx)
	}

	var (
		comps            []domain.CompositionRecord
		weights          []domain.WeightRecord
		haveComp, haveWt bool
		loadMsg          string
	)
	for compCh != nil || weightCh != nil {
		prevLoadMsg := loadMsg
		select {
		case <-ctx.Done():
			return ctx.Err()
		case list, ok := <-compCh:
			if !ok {
				compCh = nil
				continue
			}
			comps, haveComp = list, true
		case list, ok := <-weightCh:
			if !ok {
				weightCh = nil
				continue
			}
			weights, haveWt = list, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			loadMsg = ""
			if err != nil {
				loadMsg = "load failed: " + err.Error()
			}
		}

		merged := Merge(comps, weights)
		ready := (haveComp && haveWt) || loadMsg != ""
		a.store.Update(func(v View) View {
			v.Entries = merged
			v.Ready = v.Ready || ready
			switch {
			case loadMsg != "" && loadMsg != prevLoadMsg:
				v.ErrorMessage = loadMsg
			case loadMsg == "" && prevLoadMsg != "" && v.ErrorMessage == prevLoadMsg:
				v.ErrorMessage = ""
			}
			return v
		})
	}
	return nil
}

// Delete removes the record behind e. A failure is kept in the view's
// ErrorMessage as well as returned; the timeline itself only changes when
// the sources publish.
func (a *Aggregator) Delete(ctx context.Context, e Entry) error {
	var err error
	switch e := e.(type) {
	case CompositionEntry:
		err = a.src.DeleteComposition(ctx, e.Record.ID)
	case WeightEntry:
		err = a.src.DeleteWeight(ctx, e.Record.ID)
	default:
		err = fmt.Errorf("unknown history entry %T", e)
	}
	if err != nil {
		msg := "delete failed: " + err.Error()
		a.store.Update(func(v View) View {
			v.ErrorMessage = msg
			return v
		})
	}
	return err
}

// ClearError drops the current error message.
func (a *Aggregator) ClearError() {
	a.store.Update(func(v View) View {
		v.ErrorMessage = ""
		return v
	})
}
