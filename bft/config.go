// Package bft defines the consensus options of the Istanbul-family BFT
// protocols (QBFT, IBFT 2.0) and compiles them into header rule sets.
//
// Key concepts:
//   - Options: tunables shared by every BFT flavor (block period, epoch, rewards)
//   - Flavor: closed set of protocol flavors carrying their own settings
//   - ConfigOptions: Options plus Flavor, the value compared across forks
//   - RuleBuilder: ConfigOptions -> validation.RuleSet, see builder.go
//
// ConfigOptions is a plain comparable value. Two eras with identical settings
// compare equal and share one compiled rule set.
package bft

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ValidatorSelectionMode tells where the validator set of a block comes from.
type ValidatorSelectionMode uint8

const (
	// ExtraData reads validators from the header extra-data list.
	ExtraData ValidatorSelectionMode = iota
	// Contract reads validators from a deployed contract at the parent state.
	Contract
)

// String implements fmt.Stringer.
func (m ValidatorSelectionMode) String() string {
	switch m {
	case ExtraData:
		return "extradata"
	case Contract:
		return "contract"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// ParseValidatorSelectionMode accepts "extradata", "blockheader" and "contract",
// case-insensitively.
func ParseValidatorSelectionMode(s string) (ValidatorSelectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "extradata", "blockheader":
		return ExtraData, nil
	case "contract":
		return Contract, nil
	default:
		return 0, fmt.Errorf("unknown validator selection mode %q", s)
	}
}

// Options holds the settings shared by all BFT flavors.
type Options struct {
	BlockPeriodSeconds    uint64         // minimum seconds between a block and its parent
	EpochLength           uint64         // blocks between vote resets
	RequestTimeoutSeconds uint64         // base round timeout
	MiningBeneficiary     common.Address // zero means the proposer
	BlockReward           uint256.Int    // wei credited per block
}

// DefaultOptions returns the values applied when genesis omits a key.
func DefaultOptions() Options {
	return Options{
		BlockPeriodSeconds:    1,
		EpochLength:           30000,
		RequestTimeoutSeconds: 1,
	}
}

// Flavor is the closed set of supported BFT flavors. The unexported methods
// keep the set sealed to this package and force every flavor to declare how
// its validators are selected.
type Flavor interface {
	// Name is the lower-case protocol name used in genesis files.
	Name() string

	selection() (ValidatorSelectionMode, common.Address)
	check() error
}

// Qbft is the QBFT flavor. It can read validators from extra data or from a
// validator contract.
type Qbft struct {
	Mode              ValidatorSelectionMode
	ValidatorContract common.Address
}

func (Qbft) Name() string { return string(QBFT) }

func (q Qbft) selection() (ValidatorSelectionMode, common.Address) {
	return q.Mode, q.ValidatorContract
}

func (q Qbft) check() error {
	switch q.Mode {
	case ExtraData:
		return nil
	case Contract:
		if q.ValidatorContract == (common.Address{}) {
			return &InvalidConfigurationError{
				Field:  "validatorcontractaddress",
				Reason: "contract validator selection requires a contract address",
			}
		}
		return nil
	default:
		return &InvalidConfigurationError{Field: "validatorselectionmode", Reason: "unknown mode " + q.Mode.String()}
	}
}

// Ibft2 is the IBFT 2.0 flavor; validators always come from extra data.
type Ibft2 struct{}

func (Ibft2) Name() string { return string(IBFT2) }

func (Ibft2) selection() (ValidatorSelectionMode, common.Address) {
	return ExtraData, common.Address{}
}

func (Ibft2) check() error { return nil }

// ConfigOptions is everything one era needs to validate headers.
type ConfigOptions struct {
	Options
	Flavor Flavor
}

// SelectionMode returns the validator selection mode of the flavor.
func (c ConfigOptions) SelectionMode() ValidatorSelectionMode {
	if c.Flavor == nil {
		return ExtraData
	}
	mode, _ := c.Flavor.selection()
	return mode
}

// String renders the options for logs.
func (c ConfigOptions) String() string {
	name := "none"
	if c.Flavor != nil {
		name = c.Flavor.Name()
	}
	s := fmt.Sprintf("%s{period=%ds epoch=%d timeout=%ds reward=%s mode=%s",
		name, c.BlockPeriodSeconds, c.EpochLength, c.RequestTimeoutSeconds,
		c.BlockReward.ToBig().String(), c.SelectionMode())
	if c.SelectionMode() == Contract {
		_, contract := c.Flavor.selection()
		s += " contract=" + contract.Hex()
	}
	return s + "}"
}

// Validate reports whether the options can be compiled into a rule set.
func (c ConfigOptions) Validate() error {
	switch c.Flavor.(type) {
	case Qbft, Ibft2:
	case nil:
		return &InvalidConfigurationError{Field: "flavor", Reason: "no consensus flavor configured"}
	default:
		// pointer flavors would make equal options compare unequal
		return &InvalidConfigurationError{Field: "flavor", Reason: fmt.Sprintf("unsupported flavor type %T", c.Flavor)}
	}
	if c.BlockPeriodSeconds == 0 {
		return &InvalidConfigurationError{Field: "blockperiodseconds", Reason: "must be positive"}
	}
	return c.Flavor.check()
}

// InvalidConfigurationError reports options that cannot be compiled into a
// rule set. It surfaces before any block of the affected era is processed.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid bft configuration: %s: %s", e.Field, e.Reason)
}
