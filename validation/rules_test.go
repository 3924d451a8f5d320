package validation

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// headerPair returns a valid BFT parent/child pair where the child is
// period seconds younger than the parent.
func headerPair(period uint64) (child, parent *types.Header) {
	parent = &types.Header{
		Number:     big.NewInt(99),
		Time:       1_000,
		GasLimit:   10_000_000,
		Difficulty: big.NewInt(1),
		MixDigest:  MixDigestBFT,
		UncleHash:  types.EmptyUncleHash,
	}
	child = &types.Header{
		ParentHash: parent.Hash(),
		Number:     big.NewInt(100),
		Time:       parent.Time + period,
		GasLimit:   parent.GasLimit,
		GasUsed:    21_000,
		Difficulty: big.NewInt(1),
		MixDigest:  MixDigestBFT,
		UncleHash:  types.EmptyUncleHash,
	}
	return child, parent
}

// TestBlockPeriodRule exercises the strict lower bound and the absence of an
// upper bound.
func TestBlockPeriodRule(t *testing.T) {
	rule := BlockPeriodRule{PeriodSeconds: 5}

	tests := []struct {
		gap  uint64
		pass bool
	}{
		{0, false},
		{4, false},
		{5, true},
		{100, true},
	}
	for _, tt := range tests {
		child, parent := headerPair(tt.gap)
		err := rule.Validate(child, parent)
		if tt.pass {
			assert.NoError(t, err, "gap %d", tt.gap)
		} else {
			assert.True(t, errors.Is(err, ErrBlockPeriod), "gap %d: %v", tt.gap, err)
		}
	}

	child, parent := headerPair(0)
	child.Time = parent.Time - 1
	assert.True(t, errors.Is(rule.Validate(child, parent), ErrTimestampBehind))
}

func TestAncestryRule(t *testing.T) {
	child, parent := headerPair(1)
	require.NoError(t, AncestryRule{}.Validate(child, parent))

	child.ParentHash = common.Hash{0x1}
	assert.True(t, errors.Is(AncestryRule{}.Validate(child, parent), ErrUnknownAncestor))

	child, parent = headerPair(1)
	child.Number = big.NewInt(102)
	assert.True(t, errors.Is(AncestryRule{}.Validate(child, parent), ErrInvalidNumber))
}

func TestGasRules(t *testing.T) {
	child, parent := headerPair(1)
	require.NoError(t, GasUsageRule{}.Validate(child, parent))

	child.GasUsed = child.GasLimit + 1
	assert.True(t, errors.Is(GasUsageRule{}.Validate(child, parent), ErrGasUsedExceeded))

	rule := GasLimitRule{Min: DefaultMinGasLimit, Max: DefaultMaxGasLimit}
	child, parent = headerPair(1)
	require.NoError(t, rule.Validate(child, parent))

	child.GasLimit = parent.GasLimit + parent.GasLimit/GasLimitBoundDivisor
	assert.True(t, errors.Is(rule.Validate(child, parent), ErrGasLimitDelta))

	child.GasLimit = parent.GasLimit - parent.GasLimit/GasLimitBoundDivisor + 1
	assert.NoError(t, rule.Validate(child, parent))

	child.GasLimit = DefaultMinGasLimit - 1
	assert.True(t, errors.Is(rule.Validate(child, parent), ErrGasLimitRange))
}

func TestFutureTimestampRule(t *testing.T) {
	now := time.Unix(1_000, 0)
	rule := FutureTimestampRule{MaxDriftSeconds: 1, Now: func() time.Time { return now }}

	child, parent := headerPair(1)
	assert.NoError(t, rule.Validate(child, parent))

	child.Time = 1_002
	assert.True(t, errors.Is(rule.Validate(child, parent), ErrFutureBlock))
}

func TestConstantFieldRules(t *testing.T) {
	child, parent := headerPair(1)
	for _, r := range []HeaderRule{MixDigestRule(), UncleHashRule(), DifficultyRule{Expected: 1}} {
		assert.NoError(t, r.Validate(child, parent), r.Name())
	}

	child.MixDigest = common.Hash{}
	assert.True(t, errors.Is(MixDigestRule().Validate(child, parent), ErrConstantField))

	child.UncleHash = common.Hash{0x2}
	assert.True(t, errors.Is(UncleHashRule().Validate(child, parent), ErrConstantField))

	child.Difficulty = big.NewInt(2)
	assert.True(t, errors.Is(DifficultyRule{Expected: 1}.Validate(child, parent), ErrInvalidDifficulty))

	child.Difficulty = nil
	assert.True(t, errors.Is(DifficultyRule{Expected: 1}.Validate(child, parent), ErrInvalidDifficulty))

	assert.Equal(t, "ConstantField(MixHash)", MixDigestRule().Name())
}
