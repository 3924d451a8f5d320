// Package validation provides the header rule abstraction used by the block
// import pipeline.
//
// A HeaderRule is one independent check over a candidate header and its
// parent. Rules are stateless; a RuleSet is the ordered, immutable collection
// of every rule required for headers of one era. Validating a header runs all
// rules so a failure report lists every violated rule, while the first failure
// stays the authoritative reason.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrNilHeader is returned when a candidate or parent header is missing.
var ErrNilHeader = errors.New("nil header")

// ErrNoBlockNumber is returned when a candidate header carries no number.
var ErrNoBlockNumber = errors.New("header without block number")

// HeaderRule checks a candidate header against its parent.
type HeaderRule interface {
	// Name identifies the rule in failure reports and metrics.
	Name() string
	// Validate returns nil when the header passes.
	Validate(header, parent *types.Header) error
}

// HeaderValidationFailure is a single rule violation. The candidate is
// rejected; re-running validation on the same input fails again.
type HeaderValidationFailure struct {
	Rule  string
	Block idx.Block
	Err   error
}

// Error implements the error interface.
func (f *HeaderValidationFailure) Error() string {
	return fmt.Sprintf("header %d failed %s: %v", f.Block, f.Rule, f.Err)
}

// Unwrap exposes the rule's own error.
func (f *HeaderValidationFailure) Unwrap() error {
	return f.Err
}

// Result collects every failure of one header validation.
type Result struct {
	Block    idx.Block
	Failures []*HeaderValidationFailure
}

// Valid reports whether every rule passed.
func (r *Result) Valid() bool {
	return len(r.Failures) == 0
}

// Err returns the first failure, which is the authoritative rejection reason,
// or nil when the header is valid.
func (r *Result) Err() error {
	if r.Valid() {
		return nil
	}
	return r.Failures[0]
}

// String lists every failed rule, for logs.
func (r *Result) String() string {
	if r.Valid() {
		return fmt.Sprintf("header %d valid", r.Block)
	}
	parts := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		parts[i] = f.Rule + ": " + f.Err.Error()
	}
	return fmt.Sprintf("header %d invalid [%s]", r.Block, strings.Join(parts, "; "))
}

// RuleSet is an immutable ordered list of header rules.
type RuleSet struct {
	rules []HeaderRule
}

// NewRuleSet copies rules into a new set.
func NewRuleSet(rules ...HeaderRule) *RuleSet {
	cp := make([]HeaderRule, len(rules))
	copy(cp, rules)
	return &RuleSet{rules: cp}
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Names returns the rule names in evaluation order.
func (s *RuleSet) Names() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name()
	}
	return names
}

// Has reports whether a rule with the given name is part of the set.
func (s *RuleSet) Has(name string) bool {
	for _, r := range s.rules {
		if r.Name() == name {
			return true
		}
	}
	return false
}

// Validate runs every rule in order without short-circuiting.
func (s *RuleSet) Validate(header, parent *types.Header) *Result {
	res := &Result{Block: BlockOf(header)}
	for _, r := range s.rules {
		if err := r.Validate(header, parent); err != nil {
			res.Failures = append(res.Failures, &HeaderValidationFailure{
				Rule:  r.Name(),
				Block: res.Block,
				Err:   err,
			})
		}
	}
	return res
}

// BlockOf returns the header height, 0 for a header without a number.
func BlockOf(header *types.Header) idx.Block {
	if header == nil || header.Number == nil {
		return 0
	}
	return idx.Block(header.Number.Uint64())
}
