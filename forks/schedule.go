// Package forks maps block heights to the configuration active at that height.
//
// A fork schedule is an ordered list of (activation block, options) pairs built
// once at node startup. Each entry opens a new era which lasts until the next
// entry activates. The schedule is generic over the options payload so every
// consensus flavor can reuse it.
//
// Key concepts:
//   - Entry: one activation block plus the options that take effect there
//   - Era: the contiguous block range governed by one entry
//   - Resolve: "last fork not greater than block" lookup
//
// Usage:
//
//	schedule, err := forks.NewSchedule([]forks.Entry[Options]{
//	    {Block: 0, Options: genesisOpts},
//	    {Block: 100, Options: upgradedOpts},
//	})
//	opts := schedule.Resolve(150) // upgradedOpts
package forks

import (
	"fmt"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// Entry is a single fork: Options take effect from Block onwards.
type Entry[T comparable] struct {
	Block   idx.Block // first block governed by Options
	Options T         // configuration active from Block
}

// Schedule is an immutable, strictly increasing list of fork entries.
// It is safe for concurrent use once constructed.
type Schedule[T comparable] struct {
	entries []Entry[T]
}

// ScheduleConfigurationError reports a malformed fork schedule. It is only
// ever returned at construction time and must abort node startup.
type ScheduleConfigurationError struct {
	Index  int // position of the offending entry, -1 when not entry-specific
	Reason string
}

// Error implements the error interface.
func (e *ScheduleConfigurationError) Error() string {
	if e.Index < 0 {
		return "invalid fork schedule: " + e.Reason
	}
	return fmt.Sprintf("invalid fork schedule entry %d: %s", e.Index, e.Reason)
}

// NewSchedule validates the entries and returns an immutable schedule.
//
// The entries must be given in activation order; they are never re-sorted, so
// an operator mistake in the genesis file is reported instead of silently
// fixed. Construction fails when:
//   - the list is empty
//   - block 0 is not covered by the first entry
//   - activation blocks are not strictly increasing (duplicates included)
//
// Consecutive entries carrying value-identical options are legal.
func NewSchedule[T comparable](entries []Entry[T]) (*Schedule[T], error) {
	if len(entries) == 0 {
		return nil, &ScheduleConfigurationError{Index: -1, Reason: "no fork entries"}
	}
	if entries[0].Block != 0 {
		return nil, &ScheduleConfigurationError{
			Index:  0,
			Reason: fmt.Sprintf("block 0 is not covered, first fork activates at %d", entries[0].Block),
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Block <= entries[i-1].Block {
			return nil, &ScheduleConfigurationError{
				Index: i,
				Reason: fmt.Sprintf("activation block %d is not greater than previous activation %d",
					entries[i].Block, entries[i-1].Block),
			}
		}
	}

	cp := make([]Entry[T], len(entries))
	copy(cp, entries)
	return &Schedule[T]{entries: cp}, nil
}

// Resolve returns the options of the greatest entry whose activation block is
// not above block. It is total for every block once the schedule exists.
func (s *Schedule[T]) Resolve(block idx.Block) T {
	return s.ResolveEntry(block).Options
}

// ResolveEntry is like Resolve but also reports where the era started.
func (s *Schedule[T]) ResolveEntry(block idx.Block) Entry[T] {
	// first entry strictly above block, the one before it governs block
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Block > block
	})
	return s.entries[i-1]
}

// NextActivation returns the first activation block strictly after block.
func (s *Schedule[T]) NextActivation(block idx.Block) (idx.Block, bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Block > block
	})
	if i == len(s.entries) {
		return 0, false
	}
	return s.entries[i].Block, true
}

// Entries returns a copy of the schedule entries in activation order.
func (s *Schedule[T]) Entries() []Entry[T] {
	cp := make([]Entry[T], len(s.entries))
	copy(cp, s.entries)
	return cp
}

// Len returns the number of entries.
func (s *Schedule[T]) Len() int {
	return len(s.entries)
}

// Distinct returns every distinct options value in order of first activation.
func (s *Schedule[T]) Distinct() []T {
	seen := make(map[T]struct{}, len(s.entries))
	out := make([]T, 0, len(s.entries))
	for _, e := range s.entries {
		if _, ok := seen[e.Options]; ok {
			continue
		}
		seen[e.Options] = struct{}{}
		out = append(out, e.Options)
	}
	return out
}
