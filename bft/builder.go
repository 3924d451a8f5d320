package bft

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rony4d/go-opera-forks/forks"
	"github.com/rony4d/go-opera-forks/inter/bftextra"
	"github.com/rony4d/go-opera-forks/protocol"
	"github.com/rony4d/go-opera-forks/validation"
)

// MaxFutureDriftSeconds bounds how far ahead of the local clock a header
// timestamp may be.
const MaxFutureDriftSeconds = 1

// Dependencies are the collaborators a rule builder closes over.
type Dependencies struct {
	// Codec decodes header extra data. Defaults to bftextra.RLPCodec.
	Codec bftextra.Codec
	// ContractReaders is required by eras using contract validator selection.
	ContractReaders ContractReaderFactory
	// Tally yields extra-data validators. Defaults to ParentExtraDataTally.
	Tally ValidatorTally
	// Now is the local clock. Defaults to time.Now.
	Now func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Codec == nil {
		d.Codec = bftextra.RLPCodec{}
	}
	if d.Tally == nil {
		d.Tally = ParentExtraDataTally{Codec: d.Codec}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// NewRuleBuilder returns the pure ConfigOptions -> RuleSet compiler.
//
// Every rule set carries the mode-independent checks plus a BlockPeriodRule for
// the era's block period. Validator checks depend on the selection mode and
// are mutually exclusive: extra-data eras get ValidatorsFromExtraData, contract
// eras get ValidatorsFromContract. Options that cannot be compiled fail with
// *InvalidConfigurationError before any header is looked at.
func NewRuleBuilder(deps Dependencies) func(ConfigOptions) (*validation.RuleSet, error) {
	deps = deps.withDefaults()

	return func(opts ConfigOptions) (*validation.RuleSet, error) {
		if err := opts.Validate(); err != nil {
			return nil, err
		}

		rules := []validation.HeaderRule{
			validation.AncestryRule{},
			validation.GasUsageRule{},
			validation.GasLimitRule{Min: validation.DefaultMinGasLimit, Max: validation.DefaultMaxGasLimit},
			validation.FutureTimestampRule{MaxDriftSeconds: MaxFutureDriftSeconds, Now: deps.Now},
			validation.MixDigestRule(),
			validation.UncleHashRule(),
			validation.DifficultyRule{Expected: 1},
			validation.BlockPeriodRule{PeriodSeconds: opts.BlockPeriodSeconds},
		}

		mode, contract := opts.Flavor.selection()
		switch mode {
		case ExtraData:
			rules = append(rules,
				ValidatorsFromExtraDataRule{Codec: deps.Codec, Tally: deps.Tally},
				CoinbaseRule{Validators: deps.Tally.ValidatorsAfter},
			)
		case Contract:
			if deps.ContractReaders == nil {
				return nil, &InvalidConfigurationError{
					Field:  "validatorselectionmode",
					Reason: "contract validator selection needs a contract reader",
				}
			}
			reader := deps.ContractReaders(contract)
			if reader == nil {
				return nil, &InvalidConfigurationError{
					Field:  "validatorselectionmode",
					Reason: "no contract reader for " + contract.Hex(),
				}
			}
			rules = append(rules,
				ValidatorsFromContractRule{Codec: deps.Codec, Contract: contract, Reader: reader},
				CoinbaseRule{Validators: func(parent *types.Header) ([]common.Address, error) {
					return reader.ValidatorsAt(parent.Root)
				}},
			)
		}
		return validation.NewRuleSet(rules...), nil
	}
}

// NewProtocolSchedule wires a BFT fork schedule to its rule builder.
func NewProtocolSchedule(schedule *forks.Schedule[ConfigOptions], deps Dependencies, opts ...protocol.Option) *protocol.Schedule[ConfigOptions] {
	return protocol.New(schedule, NewRuleBuilder(deps), opts...)
}
