// Package temporal resolves point-in-time values from effective-dated series.
package temporal

import (
	"sort"
	"time"
)

// Record is a value that is authoritative from EffectiveAt until a later
// record for the same series supersedes it.
type Record[T any] struct {
	EffectiveAt time.Time
	Value       T
}

// Resolve returns the value that was current at ref.
//
// The newest record with EffectiveAt <= ref wins. When ref precedes every
// record, the oldest record is returned: it stands for the value in force
// before any change was logged. The boolean is false only for an empty series.
//
// Records sharing an effective date are ordered by position, so the one
// appearing later in series (inserted later) wins.
func Resolve[T any](series []Record[T], ref time.Time) (T, bool) {
	var zero T
	if len(series) == 0 {
		return zero, false
	}

	ordered := newestFirst(series)
	for _, idx := range ordered {
		if !series[idx].EffectiveAt.After(ref) {
			return series[idx].Value, true
		}
	}

	oldest := series[ordered[len(ordered)-1]].EffectiveAt
	for _, idx := range ordered {
		if series[idx].EffectiveAt.Equal(oldest) {
			return series[idx].Value, true
		}
	}
	return zero, false
}

// Latest returns the newest record whose EffectiveAt lies inside [from, to].
func Latest[T any](series []Record[T], from, to time.Time) (T, bool) {
	var zero T
	for _, idx := range newestFirst(series) {
		at := series[idx].EffectiveAt
		if at.Before(from) || at.After(to) {
			continue
		}
		return series[idx].Value, true
	}
	return zero, false
}

// newestFirst returns indexes into series sorted by EffectiveAt descending,
// later positions first on ties. series itself is left untouched.
func newestFirst[T any](series []Record[T]) []int {
	idx := make([]int, len(series))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ea, eb := series[idx[a]].EffectiveAt, series[idx[b]].EffectiveAt
		if ea.Equal(eb) {
			return idx[a] > idx[b]
		}
		return ea.After(eb)
	})
	return idx
}
