// Package protocol selects the header rules in force at a block height.
//
// A Schedule ties together a fork schedule (height -> options), a rule
// builder (options -> rule set) and a rule cache, behind a single
// RulesetFor(height) entry point used by block import. It holds no
// chain-height state: every answer is a pure function of the height and the
// immutable fork schedule, so heights may be queried in any order during sync
// and reorgs.
//
// Usage:
//
//	ps := protocol.New(schedule, builder, protocol.WithLogger(log))
//	if err := ps.Prebuild(); err != nil {
//	    return err // abort startup
//	}
//	res, err := ps.Validate(header, parent)
package protocol

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-forks/forks"
	"github.com/rony4d/go-opera-forks/validation"
)

// Option configures a Schedule.
type Option func(*settings)

type settings struct {
	log     logrus.FieldLogger
	metrics *Metrics
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *settings) { s.log = log }
}

// WithMetrics enables prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// Schedule is the protocol schedule: fork schedule + rule builder + cache.
// It is safe for concurrent use.
type Schedule[T comparable] struct {
	forks   *forks.Schedule[T]
	cache   *RuleCache[T]
	log     logrus.FieldLogger
	metrics *Metrics
}

// New creates a protocol schedule. Rule sets are built lazily on first use of
// each era; call Prebuild to build them all up front.
func New[T comparable](schedule *forks.Schedule[T], build Builder[T], opts ...Option) *Schedule[T] {
	cfg := settings{log: logrus.StandardLogger()}
	for _, o := range opts {
		o(&cfg)
	}

	s := &Schedule[T]{
		forks:   schedule,
		log:     cfg.log,
		metrics: cfg.metrics,
	}
	s.cache = NewRuleCache(func(o T) (*validation.RuleSet, error) {
		set, err := build(o)
		if err != nil {
			s.log.WithError(err).WithField("options", fmt.Sprint(o)).Error("Invalid era configuration")
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"options": fmt.Sprint(o),
			"rules":   set.Names(),
		}).Debug("Built header ruleset")
		return set, nil
	}, cfg.metrics)
	return s
}

// Forks returns the underlying fork schedule.
func (s *Schedule[T]) Forks() *forks.Schedule[T] {
	return s.forks
}

// OptionsAt returns the options in force at block.
func (s *Schedule[T]) OptionsAt(block idx.Block) T {
	return s.forks.Resolve(block)
}

// Era returns the fork entry in force at block.
func (s *Schedule[T]) Era(block idx.Block) forks.Entry[T] {
	return s.forks.ResolveEntry(block)
}

// RulesetFor returns the rule set governing headers at block.
func (s *Schedule[T]) RulesetFor(block idx.Block) (*validation.RuleSet, error) {
	era := s.Era(block)
	set, err := s.cache.GetOrBuild(era.Options)
	if err != nil {
		return nil, fmt.Errorf("ruleset for block %d (era from block %d): %w", block, era.Block, err)
	}
	return set, nil
}

// Validate runs every rule of the candidate's era against the candidate and
// its parent. Rule violations are reported in the Result; the returned error
// is reserved for missing headers and eras whose rules cannot be built.
func (s *Schedule[T]) Validate(header, parent *types.Header) (*validation.Result, error) {
	if header == nil || parent == nil {
		return nil, validation.ErrNilHeader
	}
	if header.Number == nil {
		return nil, validation.ErrNoBlockNumber
	}
	block := validation.BlockOf(header)
	set, err := s.RulesetFor(block)
	if err != nil {
		return nil, err
	}

	res := set.Validate(header, parent)
	failed := make([]string, len(res.Failures))
	for i, f := range res.Failures {
		failed[i] = f.Rule
	}
	s.metrics.validated(res.Valid(), failed)
	if !res.Valid() {
		s.log.WithFields(logrus.Fields{
			"block":  block,
			"hash":   header.Hash(),
			"failed": failed,
		}).WithError(res.Err()).Debug("Header rejected")
	}
	return res, nil
}

// Prebuild builds the rule set of every era, in activation order, and returns
// the first configuration error. Nodes call it at startup so a bad era stops
// the node before it joins consensus.
func (s *Schedule[T]) Prebuild() error {
	entries := s.forks.Entries()
	for i, e := range entries {
		set, err := s.cache.GetOrBuild(e.Options)
		if err != nil {
			return fmt.Errorf("era from block %d: %w", e.Block, err)
		}
		fields := logrus.Fields{
			"from":  e.Block,
			"rules": set.Len(),
		}
		if i+1 < len(entries) {
			fields["until"] = entries[i+1].Block - 1
		}
		s.log.WithFields(fields).Info("Fork era ready")
	}
	return nil
}

// CachedRulesets returns the number of distinct rule sets built so far.
func (s *Schedule[T]) CachedRulesets() int {
	return s.cache.Len()
}
