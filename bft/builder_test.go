package bft

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-forks/protocol"
	"github.com/rony4d/go-opera-forks/validation"
)

// countingReaders hands out contract readers that report the test validators
// and count how often they are consulted.
type countingReaders struct {
	contracts []common.Address
	reads     int32
}

func (c *countingReaders) factory(contract common.Address) ContractValidatorReader {
	c.contracts = append(c.contracts, contract)
	return ContractValidatorReaderFunc(func(common.Hash) ([]common.Address, error) {
		atomic.AddInt32(&c.reads, 1)
		return validators, nil
	})
}

type scheduleFixture struct {
	schedule *protocol.Schedule[ConfigOptions]
	readers  *countingReaders
}

// switchingSchedule is a QBFT chain that moves from extra-data to contract
// validator selection at block 100.
func switchingSchedule(t *testing.T) *scheduleFixture {
	t.Helper()
	s, err := ParseForks(QBFT,
		map[string]interface{}{"blockperiodseconds": float64(1)},
		[]RawFork{{Block: 100, Config: map[string]interface{}{
			"validatorselectionmode":   "contract",
			"validatorcontractaddress": contractHex,
		}}},
	)
	require.NoError(t, err)

	readers := new(countingReaders)
	log, _ := logtest.NewNullLogger()
	ps := NewProtocolSchedule(s, Dependencies{ContractReaders: readers.factory, Now: clock}, protocol.WithLogger(log))
	return &scheduleFixture{schedule: ps, readers: readers}
}

func TestRuleBuilder_modeIndependentRules(t *testing.T) {
	build := NewRuleBuilder(Dependencies{Now: clock})
	set, err := build(ConfigOptions{Options: DefaultOptions(), Flavor: Ibft2{}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Ancestry",
		"GasUsage",
		"GasLimitRangeAndDelta",
		"TimestampBoundedByFuture",
		"ConstantField(MixHash)",
		"ConstantField(OmmersHash)",
		"ConstantField(Difficulty)",
		"BlockPeriod",
		RuleValidatorsFromExtraData,
		RuleCoinbase,
	}, set.Names())
}

func TestRuleBuilder_invalidOptions(t *testing.T) {
	tests := []struct {
		name  string
		deps  Dependencies
		opts  ConfigOptions
		field string
	}{
		{
			name:  "contract mode without address",
			deps:  Dependencies{ContractReaders: new(countingReaders).factory},
			opts:  ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{Mode: Contract}},
			field: "validatorcontractaddress",
		},
		{
			name:  "contract mode without reader",
			opts:  ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{Mode: Contract, ValidatorContract: common.HexToAddress(contractHex)}},
			field: "validatorselectionmode",
		},
		{
			name:  "reader factory returns nil",
			deps:  Dependencies{ContractReaders: func(common.Address) ContractValidatorReader { return nil }},
			opts:  ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{Mode: Contract, ValidatorContract: common.HexToAddress(contractHex)}},
			field: "validatorselectionmode",
		},
		{
			name:  "zero period",
			opts:  ConfigOptions{Flavor: Qbft{}},
			field: "blockperiodseconds",
		},
		{
			name:  "pointer flavor",
			opts:  ConfigOptions{Options: DefaultOptions(), Flavor: &Qbft{}},
			field: "flavor",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleBuilder(tt.deps)(tt.opts)
			var cfgErr *InvalidConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

// TestProtocolSchedule_validatorRulesExclusive checks that the extra-data and
// contract validator rules never share an era.
func TestProtocolSchedule_validatorRulesExclusive(t *testing.T) {
	f := switchingSchedule(t)

	for _, block := range []uint64{0, 1, 99} {
		set, err := f.schedule.RulesetFor(idx.Block(block))
		require.NoError(t, err)
		assert.True(t, set.Has(RuleValidatorsFromExtraData), "block %d", block)
		assert.False(t, set.Has(RuleValidatorsFromContract), "block %d", block)
	}
	for _, block := range []uint64{100, 101, 1 << 40} {
		set, err := f.schedule.RulesetFor(idx.Block(block))
		require.NoError(t, err)
		assert.False(t, set.Has(RuleValidatorsFromExtraData), "block %d", block)
		assert.True(t, set.Has(RuleValidatorsFromContract), "block %d", block)
	}
	assert.Equal(t, []common.Address{common.HexToAddress(contractHex)}, f.readers.contracts, "one build per era")
}

func TestProtocolSchedule_Validate(t *testing.T) {
	f := switchingSchedule(t)

	// extra-data era: the contract is never consulted
	child, parent := chainPair(t, 99)
	res, err := f.schedule.Validate(child, parent)
	require.NoError(t, err)
	assert.True(t, res.Valid(), res.String())
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.readers.reads))

	// contract era: validators and coinbase are both read from the contract
	child, parent = chainPair(t, 100)
	res, err = f.schedule.Validate(child, parent)
	require.NoError(t, err)
	assert.True(t, res.Valid(), res.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.readers.reads))
}

func TestProtocolSchedule_Validate_collectsAllFailures(t *testing.T) {
	f := switchingSchedule(t)

	child, parent := chainPair(t, 50)
	child.Time = parent.Time // period violation
	child.GasUsed = child.GasLimit + 1
	child.Coinbase = common.HexToAddress("0xdead")

	res, err := f.schedule.Validate(child, parent)
	require.NoError(t, err)
	require.Len(t, res.Failures, 3)
	assert.Equal(t, "GasUsage", res.Failures[0].Rule, "first failure in rule order")
	assert.Equal(t, "BlockPeriod", res.Failures[1].Rule)
	assert.Equal(t, RuleCoinbase, res.Failures[2].Rule)

	var failure *validation.HeaderValidationFailure
	require.True(t, errors.As(res.Err(), &failure))
	assert.True(t, errors.Is(failure, validation.ErrGasUsedExceeded))
}

func TestProtocolSchedule_Prebuild(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := protocol.NewMetrics(reg)

	s, err := ParseForks(QBFT, nil, []RawFork{
		{Block: 10, Config: map[string]interface{}{"blockperiodseconds": float64(2)}},
		{Block: 20, Config: map[string]interface{}{"validatorselectionmode": "contract"}},
	})
	require.NoError(t, err)

	log, _ := logtest.NewNullLogger()
	ps := NewProtocolSchedule(s, Dependencies{ContractReaders: new(countingReaders).factory},
		protocol.WithLogger(log), protocol.WithMetrics(metrics))

	err = ps.Prebuild()
	var cfgErr *InvalidConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "validatorcontractaddress", cfgErr.Field)
	assert.Contains(t, err.Error(), "era from block 20")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Builds.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Builds.WithLabelValues("error")))

	// earlier eras stay usable
	_, err = ps.RulesetFor(15)
	assert.NoError(t, err)
}
