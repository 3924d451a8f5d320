package bft

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rony4d/go-opera-forks/inter/bftextra"
)

// Rule names of the mode-dependent rules.
const (
	RuleValidatorsFromExtraData = "ValidatorsFromExtraData"
	RuleValidatorsFromContract  = "ValidatorsFromContract"
	RuleCoinbase                = "Coinbase"
)

var (
	ErrValidatorsNotSorted  = errors.New("extra-data validators not strictly ascending")
	ErrValidatorsMismatch   = errors.New("extra-data validators differ from expected set")
	ErrNoValidators         = errors.New("empty validator set")
	ErrCoinbaseNotValidator = errors.New("coinbase is not a validator")
)

// ContractValidatorReader reads the validator set held by a validator
// contract at the given parent state root. Implementations are read-only.
type ContractValidatorReader interface {
	ValidatorsAt(parentStateRoot common.Hash) ([]common.Address, error)
}

// ContractValidatorReaderFunc adapts a function to ContractValidatorReader.
type ContractValidatorReaderFunc func(parentStateRoot common.Hash) ([]common.Address, error)

// ValidatorsAt implements ContractValidatorReader.
func (f ContractValidatorReaderFunc) ValidatorsAt(root common.Hash) ([]common.Address, error) {
	return f(root)
}

// ContractReaderFactory binds a reader to one validator contract address.
type ContractReaderFactory func(contract common.Address) ContractValidatorReader

// ValidatorTally yields the validators allowed to seal the child of parent in
// extra-data mode.
type ValidatorTally interface {
	ValidatorsAfter(parent *types.Header) ([]common.Address, error)
}

// ParentExtraDataTally takes the validator list advertised by the parent.
type ParentExtraDataTally struct {
	Codec bftextra.Codec
}

// ValidatorsAfter implements ValidatorTally.
func (t ParentExtraDataTally) ValidatorsAfter(parent *types.Header) ([]common.Address, error) {
	extra, err := t.Codec.Decode(parent.Extra)
	if err != nil {
		return nil, fmt.Errorf("parent extra data: %w", err)
	}
	return extra.Validators, nil
}

// ValidatorsFromExtraDataRule requires the candidate's extra-data validators to
// be strictly ascending and equal to the tally after the parent.
type ValidatorsFromExtraDataRule struct {
	Codec bftextra.Codec
	Tally ValidatorTally
}

func (ValidatorsFromExtraDataRule) Name() string { return RuleValidatorsFromExtraData }

func (r ValidatorsFromExtraDataRule) Validate(header, parent *types.Header) error {
	extra, err := r.Codec.Decode(header.Extra)
	if err != nil {
		return err
	}
	if !strictlyAscending(extra.Validators) {
		return ErrValidatorsNotSorted
	}
	expected, err := r.Tally.ValidatorsAfter(parent)
	if err != nil {
		return err
	}
	if !equalSets(extra.Validators, expected) {
		return fmt.Errorf("%w: have %d validators, want %d", ErrValidatorsMismatch, len(extra.Validators), len(expected))
	}
	return nil
}

// ValidatorsFromContractRule requires the candidate's extra-data validators
// to match the set read from the validator contract at the parent state.
type ValidatorsFromContractRule struct {
	Codec    bftextra.Codec
	Contract common.Address
	Reader   ContractValidatorReader
}

func (ValidatorsFromContractRule) Name() string { return RuleValidatorsFromContract }

func (r ValidatorsFromContractRule) Validate(header, parent *types.Header) error {
	extra, err := r.Codec.Decode(header.Extra)
	if err != nil {
		return err
	}
	expected, err := r.Reader.ValidatorsAt(parent.Root)
	if err != nil {
		return fmt.Errorf("read validators from %s at %x: %w", r.Contract.Hex(), parent.Root, err)
	}
	if !equalSets(extra.Validators, expected) {
		return fmt.Errorf("%w: contract %s", ErrValidatorsMismatch, r.Contract.Hex())
	}
	return nil
}

// CoinbaseRule requires the proposer (coinbase) to belong to the validator set
// in force for the block.
type CoinbaseRule struct {
	Validators func(parent *types.Header) ([]common.Address, error)
}

func (CoinbaseRule) Name() string { return RuleCoinbase }

func (r CoinbaseRule) Validate(header, parent *types.Header) error {
	set, err := r.Validators(parent)
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return ErrNoValidators
	}
	for _, v := range set {
		if v == header.Coinbase {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCoinbaseNotValidator, header.Coinbase.Hex())
}

func strictlyAscending(addrs []common.Address) bool {
	for i := 1; i < len(addrs); i++ {
		if bytes.Compare(addrs[i-1][:], addrs[i][:]) >= 0 {
			return false
		}
	}
	return true
}

// equalSets compares two address lists ignoring order and duplicates.
func equalSets(a, b []common.Address) bool {
	return bytes.Equal(flatten(sorted(a)), flatten(sorted(b)))
}

func sorted(addrs []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(addrs))
	out := make([]common.Address, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

func flatten(addrs []common.Address) []byte {
	buf := make([]byte, 0, len(addrs)*common.AddressLength)
	for _, a := range addrs {
		buf = append(buf, a[:]...)
	}
	return buf
}
