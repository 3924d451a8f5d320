package bft

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidatorSelectionMode(t *testing.T) {
	tests := []struct {
		in   string
		want ValidatorSelectionMode
		ok   bool
	}{
		{"extradata", ExtraData, true},
		{"blockheader", ExtraData, true},
		{"BlockHeader", ExtraData, true},
		{" contract ", Contract, true},
		{"CONTRACT", Contract, true},
		{"vote", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseValidatorSelectionMode(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "extradata", ExtraData.String())
	assert.Equal(t, "contract", Contract.String())
	assert.Equal(t, "unknown(7)", ValidatorSelectionMode(7).String())
}

func TestConfigOptions_Validate(t *testing.T) {
	contract := common.HexToAddress("0x0000000000000000000000000000000000008888")

	tests := []struct {
		name  string
		opts  ConfigOptions
		field string // empty when valid
	}{
		{"qbft extra data", ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{}}, ""},
		{"ibft2", ConfigOptions{Options: DefaultOptions(), Flavor: Ibft2{}}, ""},
		{"qbft contract", ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{Mode: Contract, ValidatorContract: contract}}, ""},
		{"contract without address", ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{Mode: Contract}}, "validatorcontractaddress"},
		{"unknown mode", ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{Mode: 9}}, "validatorselectionmode"},
		{"no flavor", ConfigOptions{Options: DefaultOptions()}, "flavor"},
		{"qbft pointer", ConfigOptions{Options: DefaultOptions(), Flavor: &Qbft{}}, "flavor"},
		{"ibft2 pointer", ConfigOptions{Options: DefaultOptions(), Flavor: &Ibft2{}}, "flavor"},
		{"zero period", ConfigOptions{Flavor: Qbft{}}, "blockperiodseconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *InvalidConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

// TestConfigOptions_comparable checks that value-equal options built
// separately compare equal, which the rule cache relies on.
func TestConfigOptions_comparable(t *testing.T) {
	mk := func() ConfigOptions {
		o := ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{Mode: Contract, ValidatorContract: common.HexToAddress("0x01")}}
		o.BlockReward = *uint256.NewInt(5_000_000_000)
		return o
	}
	a, b := mk(), mk()
	assert.True(t, a == b)

	b.BlockPeriodSeconds = 2
	assert.False(t, a == b)

	seen := map[ConfigOptions]int{a: 1}
	assert.Equal(t, 1, seen[mk()])

	assert.NotEqual(t, ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{}}, ConfigOptions{Options: DefaultOptions(), Flavor: Ibft2{}})
}

func TestConfigOptions_String(t *testing.T) {
	o := ConfigOptions{Options: DefaultOptions(), Flavor: Qbft{Mode: Contract, ValidatorContract: common.HexToAddress("0x01")}}
	s := o.String()
	assert.Contains(t, s, "qbft{period=1s")
	assert.Contains(t, s, "mode=contract")
	assert.Contains(t, s, "contract=0x0000000000000000000000000000000000000001")

	assert.Equal(t, ExtraData, ConfigOptions{}.SelectionMode())
	assert.Contains(t, ConfigOptions{}.String(), "none{")
}
