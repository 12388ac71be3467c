// Package history merges body-composition and weight records into a single
// newest-first timeline.
package history

import "bodycomp/internal/domain"

// Kind names the record type behind an Entry.
type Kind string

const (
	KindComposition Kind = "composition"
	KindWeight      Kind = "weight"
)

// Entry is one row of the timeline: either a CompositionEntry or a
// WeightEntry.
type Entry interface {
	TimestampMillis() int64
	Kind() Kind
	RecordID() int64
	isEntry()
}

// CompositionEntry wraps a body-composition record.
type CompositionEntry struct {
	Record domain.CompositionRecord
}

func (e CompositionEntry) TimestampMillis() int64 { return e.Record.TimestampMillis() }
func (e CompositionEntry) Kind() Kind             { return KindComposition }
func (e CompositionEntry) RecordID() int64        { return e.Record.ID }
func (CompositionEntry) isEntry()                 {}

// WeightEntry wraps a weight record.
type WeightEntry struct {
	Record domain.WeightRecord
}

func (e WeightEntry) TimestampMillis() int64 { return e.Record.TimestampMillis() }
func (e WeightEntry) Kind() Kind             { return KindWeight }
func (e WeightEntry) RecordID() int64        { return e.Record.ID }
func (WeightEntry) isEntry()                 {}

// Merge interleaves two newest-first record lists into one newest-first
// timeline. Entries with equal timestamps keep composition records ahead of
// weight records; within one list the input order is kept.
func Merge(comps []domain.CompositionRecord, weights []domain.WeightRecord) []Entry {
	out := make([]Entry, 0, len(comps)+len(weights))
	i, j := 0, 0
	for i < len(comps) && j < len(weights) {
		if comps[i].TimestampMillis() >= weights[j].TimestampMillis() {
			out = append(out, CompositionEntry{Record: comps[i]})
			i++
		} else {
			out = append(out, WeightEntry{Record: weights[j]})
			j++
		}
	}
	for ; i < len(comps); i++ {
		out = append(out, CompositionEntry{Record: comps[i]})
	}
	for ; j < len(weights); j++ {
		out = append(out, WeightEntry{Record: weights[j]})
	}
	return out
}
