package integration

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/rony4d/go-opera-forks/genesis"
)

// Package integration provides named network presets. A preset bundles a
// genesis consensus section and its fork transitions into a profile (dev,
// test, switch) so operators and tests can bring up a known fork schedule
// without writing a genesis file.
//
// Usage:
//   p, err := integration.GetPresetByName("switch")
//   schedule, err := p.Genesis.Schedule()
//
// Presets are built fresh on every call, so callers may modify the returned
// genesis without affecting other users.

// DefaultValidatorContract is the address the switch preset moves validator
// selection to.
const DefaultValidatorContract = "0x0000000000000000000000000000000000008888"

// Preset is a named genesis consensus configuration.
type Preset struct {
	Name        string           // identifier used by --preset
	Description string           // one line for --help and logs
	Genesis     *genesis.Genesis // consensus section only
}

// DevPreset is a single-era QBFT chain with one second blocks, for local
// development.
func DevPreset() Preset {
	return Preset{
		Name:        "dev",
		Description: "single-era QBFT, 1s blocks, validators from extra data",
		Genesis: &genesis.Genesis{
			Config: genesis.ChainConfig{
				ChainID: big.NewInt(1337),
				Qbft: map[string]interface{}{
					"blockperiodseconds":    uint64(1),
					"epochlength":           uint64(30000),
					"requesttimeoutseconds": uint64(4),
				},
			},
		},
	}
}

// TestPreset is an IBFT 2.0 chain that slows block production at block 1000
// and starts paying a block reward at block 2000.
func TestPreset() Preset {
	return Preset{
		Name:        "test",
		Description: "IBFT 2.0, period 2s then 5s from block 1000, reward from block 2000",
		Genesis: &genesis.Genesis{
			Config: genesis.ChainConfig{
				ChainID: big.NewInt(2018),
				Ibft2: map[string]interface{}{
					"blockperiodseconds":    uint64(2),
					"epochlength":           uint64(30000),
					"requesttimeoutseconds": uint64(10),
				},
				Transitions: genesis.Transitions{
					Ibft2: []genesis.Transition{
						{Block: 1000, Config: map[string]interface{}{"blockperiodseconds": uint64(5)}},
						{Block: 2000, Config: map[string]interface{}{"blockreward": "5000000000000000000"}},
					},
				},
			},
		},
	}
}

// SwitchPreset is a QBFT chain that moves validator selection from extra data
// to DefaultValidatorContract at block 100, then lengthens the block period
// at block 250. Eras from block 100 on need a contract reader.
func SwitchPreset() Preset {
	return Preset{
		Name:        "switch",
		Description: "QBFT, extra-data validators until 99, contract validators from 100, 5s blocks from 250",
		Genesis: &genesis.Genesis{
			Config: genesis.ChainConfig{
				ChainID: big.NewInt(1338),
				Qbft: map[string]interface{}{
					"blockperiodseconds": uint64(1),
					"epochlength":        uint64(30000),
				},
				Transitions: genesis.Transitions{
					Qbft: []genesis.Transition{
						{Block: 100, Config: map[string]interface{}{
							"validatorselectionmode":   "contract",
							"validatorcontractaddress": DefaultValidatorContract,
						}},
						{Block: 250, Config: map[string]interface{}{"blockperiodseconds": uint64(5)}},
					},
				},
			},
		},
	}
}

var presets = map[string]func() Preset{
	"dev":    DevPreset,
	"test":   TestPreset,
	"switch": SwitchPreset,
}

// Names returns the known preset names, sorted.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GetPresetByName looks up a preset by its identifier. This helper enables
// CLI flags like --preset=switch to select a fork schedule.
//
// Example:
//
//	preset, err := integration.GetPresetByName("dev")
//	if err != nil {
//	    log.Fatal(err)
//	}
func GetPresetByName(name string) (Preset, error) {
	mk, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset: %q (valid: %v)", name, Names())
	}
	return mk(), nil
}
