package validation

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	// DefaultMinGasLimit is the lowest gas limit a header may declare.
	DefaultMinGasLimit uint64 = 5000
	// DefaultMaxGasLimit is the highest gas limit a header may declare.
	DefaultMaxGasLimit uint64 = 0x7fffffffffffffff
	// GasLimitBoundDivisor bounds the per-block gas limit change to parent/1024.
	GasLimitBoundDivisor uint64 = 1024
)

// MixDigestBFT is the constant mix digest of Istanbul-family BFT headers,
// the ASCII bytes of "tical byzantine fault tolerance".
var MixDigestBFT = common.HexToHash("0x63746963616c2062797a616e74696e65206661756c7420746f6c6572616e6365")

var (
	ErrUnknownAncestor   = errors.New("parent hash mismatch")
	ErrInvalidNumber     = errors.New("block number is not parent number + 1")
	ErrGasUsedExceeded   = errors.New("gas used exceeds gas limit")
	ErrGasLimitRange     = errors.New("gas limit out of range")
	ErrGasLimitDelta     = errors.New("gas limit changed too much from parent")
	ErrFutureBlock       = errors.New("block timestamp too far in the future")
	ErrConstantField     = errors.New("unexpected constant field value")
	ErrBlockPeriod       = errors.New("block produced before block period elapsed")
	ErrTimestampBehind   = errors.New("block timestamp before parent timestamp")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

// AncestryRule checks the parent link and the block number increment.
type AncestryRule struct{}

func (AncestryRule) Name() string { return "Ancestry" }

func (AncestryRule) Validate(header, parent *types.Header) error {
	if header.ParentHash != parent.Hash() {
		return fmt.Errorf("%w: have %x, want %x", ErrUnknownAncestor, header.ParentHash, parent.Hash())
	}
	if BlockOf(header) != BlockOf(parent)+1 {
		return fmt.Errorf("%w: have %d, parent %d", ErrInvalidNumber, BlockOf(header), BlockOf(parent))
	}
	return nil
}

// GasUsageRule requires gasUsed <= gasLimit.
type GasUsageRule struct{}

func (GasUsageRule) Name() string { return "GasUsage" }

func (GasUsageRule) Validate(header, _ *types.Header) error {
	if header.GasUsed > header.GasLimit {
		return fmt.Errorf("%w: used %d, limit %d", ErrGasUsedExceeded, header.GasUsed, header.GasLimit)
	}
	return nil
}

// GasLimitRule keeps the gas limit inside [Min, Max] and bounds its change
// relative to the parent.
type GasLimitRule struct {
	Min uint64
	Max uint64
}

func (GasLimitRule) Name() string { return "GasLimitRangeAndDelta" }

func (r GasLimitRule) Validate(header, parent *types.Header) error {
	if header.GasLimit < r.Min || header.GasLimit > r.Max {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrGasLimitRange, header.GasLimit, r.Min, r.Max)
	}
	diff := header.GasLimit - parent.GasLimit
	if parent.GasLimit > header.GasLimit {
		diff = parent.GasLimit - header.GasLimit
	}
	if bound := parent.GasLimit / GasLimitBoundDivisor; diff >= bound {
		return fmt.Errorf("%w: delta %d, bound %d", ErrGasLimitDelta, diff, bound)
	}
	return nil
}

// FutureTimestampRule rejects headers whose timestamp is more than
// MaxDriftSeconds ahead of the local clock.
type FutureTimestampRule struct {
	MaxDriftSeconds uint64
	Now             func() time.Time
}

func (FutureTimestampRule) Name() string { return "TimestampBoundedByFuture" }

func (r FutureTimestampRule) Validate(header, _ *types.Header) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	limit := uint64(now().Unix()) + r.MaxDriftSeconds
	if header.Time > limit {
		return fmt.Errorf("%w: %d > %d", ErrFutureBlock, header.Time, limit)
	}
	return nil
}

// ConstantFieldRule requires a header field to hold a fixed value.
type ConstantFieldRule[V comparable] struct {
	Field    string
	Get      func(*types.Header) V
	Expected V
}

func (r ConstantFieldRule[V]) Name() string { return "ConstantField(" + r.Field + ")" }

func (r ConstantFieldRule[V]) Validate(header, _ *types.Header) error {
	if got := r.Get(header); got != r.Expected {
		return fmt.Errorf("%w: %s is %v, want %v", ErrConstantField, r.Field, got, r.Expected)
	}
	return nil
}

// MixDigestRule requires the BFT mix digest.
func MixDigestRule() HeaderRule {
	return ConstantFieldRule[common.Hash]{
		Field:    "MixHash",
		Get:      func(h *types.Header) common.Hash { return h.MixDigest },
		Expected: MixDigestBFT,
	}
}

// UncleHashRule requires an empty ommers list.
func UncleHashRule() HeaderRule {
	return ConstantFieldRule[common.Hash]{
		Field:    "OmmersHash",
		Get:      func(h *types.Header) common.Hash { return h.UncleHash },
		Expected: types.EmptyUncleHash,
	}
}

// DifficultyRule requires a fixed difficulty (1 on BFT chains).
type DifficultyRule struct {
	Expected uint64
}

func (DifficultyRule) Name() string { return "ConstantField(Difficulty)" }

func (r DifficultyRule) Validate(header, _ *types.Header) error {
	if header.Difficulty == nil || header.Difficulty.Cmp(new(big.Int).SetUint64(r.Expected)) != 0 {
		return fmt.Errorf("%w: have %v, want %d", ErrInvalidDifficulty, header.Difficulty, r.Expected)
	}
	return nil
}

// BlockPeriodRule requires at least PeriodSeconds between parent and
// candidate timestamps. No upper bound is enforced here.
type BlockPeriodRule struct {
	PeriodSeconds uint64
}

func (BlockPeriodRule) Name() string { return "BlockPeriod" }

func (r BlockPeriodRule) Validate(header, parent *types.Header) error {
	if header.Time < parent.Time {
		return fmt.Errorf("%w: %d < %d", ErrTimestampBehind, header.Time, parent.Time)
	}
	if gap := header.Time - parent.Time; gap < r.PeriodSeconds {
		return fmt.Errorf("%w: %ds since parent, period %ds", ErrBlockPeriod, gap, r.PeriodSeconds)
	}
	return nil
}
