package bft

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/rony4d/go-opera-forks/forks"
)

// Protocol names a BFT flavor in genesis files.
type Protocol string

const (
	QBFT  Protocol = "qbft"
	IBFT2 Protocol = "ibft2"
)

// Genesis config keys, matched case-insensitively.
const (
	keyBlockPeriod       = "blockperiodseconds"
	keyEpochLength       = "epochlength"
	keyRequestTimeout    = "requesttimeoutseconds"
	keyBeneficiary       = "miningbeneficiary"
	keyBlockReward       = "blockreward"
	keySelectionMode     = "validatorselectionmode"
	keyValidatorContract = "validatorcontractaddress"
)

// RawFork is one unparsed schedule entry as read from genesis.
type RawFork struct {
	Block  uint64
	Config map[string]interface{}
}

// ParseForks builds the fork schedule of protocol p.
//
// base activates at block 0. Each transition only names the keys it changes;
// every other setting is inherited from the era before it. Malformed values,
// unknown keys and unordered transitions are reported as
// *forks.ScheduleConfigurationError. Semantic checks such as a missing
// validator contract are left to the rule builder.
func ParseForks(p Protocol, base map[string]interface{}, transitions []RawFork) (*forks.Schedule[ConfigOptions], error) {
	var flavor Flavor
	switch p {
	case QBFT:
		flavor = Qbft{}
	case IBFT2:
		flavor = Ibft2{}
	default:
		return nil, &forks.ScheduleConfigurationError{Index: -1, Reason: fmt.Sprintf("unsupported protocol %q", p)}
	}

	cur := ConfigOptions{Options: DefaultOptions(), Flavor: flavor}
	if err := apply(&cur, base); err != nil {
		return nil, &forks.ScheduleConfigurationError{Index: 0, Reason: err.Error()}
	}
	entries := []forks.Entry[ConfigOptions]{{Block: 0, Options: cur}}

	for i, t := range transitions {
		next := cur
		if err := apply(&next, t.Config); err != nil {
			return nil, &forks.ScheduleConfigurationError{Index: i + 1, Reason: err.Error()}
		}
		entries = append(entries, forks.Entry[ConfigOptions]{Block: idx.Block(t.Block), Options: next})
		cur = next
	}

	// a transition at block 0 replaces the genesis entry
	if len(entries) > 1 && entries[1].Block == 0 {
		entries = entries[1:]
	}
	return forks.NewSchedule(entries)
}

// apply overlays raw onto opts. Keys are applied in sorted order so errors are
// reported deterministically.
func apply(opts *ConfigOptions, raw map[string]interface{}) error {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := raw[k]
		var err error
		switch strings.ToLower(k) {
		case keyBlockPeriod:
			opts.BlockPeriodSeconds, err = toUint64(v)
		case keyEpochLength:
			opts.EpochLength, err = toUint64(v)
		case keyRequestTimeout:
			opts.RequestTimeoutSeconds, err = toUint64(v)
		case keyBeneficiary:
			opts.MiningBeneficiary, err = toAddress(v)
		case keyBlockReward:
			opts.BlockReward, err = toUint256(v)
		case keySelectionMode:
			err = setQbft(opts, func(q *Qbft) error {
				s, ok := v.(string)
				if !ok {
					return fmt.Errorf("expected string, got %T", v)
				}
				mode, perr := ParseValidatorSelectionMode(s)
				if perr != nil {
					return perr
				}
				q.Mode = mode
				return nil
			})
		case keyValidatorContract:
			err = setQbft(opts, func(q *Qbft) (err error) {
				q.ValidatorContract, err = toAddress(v)
				return err
			})
		default:
			return fmt.Errorf("unknown %s option %q", opts.Flavor.Name(), k)
		}
		if err != nil {
			return fmt.Errorf("option %q: %w", k, err)
		}
	}
	return nil
}

func setQbft(opts *ConfigOptions, set func(*Qbft) error) error {
	q, ok := opts.Flavor.(Qbft)
	if !ok {
		return fmt.Errorf("not supported by %s", opts.Flavor.Name())
	}
	if err := set(&q); err != nil {
		return err
	}
	opts.Flavor = q
	return nil
}

func toUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= math.MaxUint64 {
			return 0, fmt.Errorf("%v is not a non-negative integer", n)
		}
		return uint64(n), nil
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	case int:
		if n < 0 {
			return 0, fmt.Errorf("%d is negative", n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	case string:
		if strings.HasPrefix(n, "0x") || strings.HasPrefix(n, "0X") {
			return hexutil.DecodeUint64(strings.ToLower(n))
		}
		return strconv.ParseUint(n, 10, 64)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func toUint256(v interface{}) (uint256.Int, error) {
	var b *big.Int
	switch n := v.(type) {
	case string:
		var ok bool
		if b, ok = new(big.Int).SetString(n, 0); !ok {
			return uint256.Int{}, fmt.Errorf("invalid integer %q", n)
		}
	case json.Number:
		var ok bool
		if b, ok = new(big.Int).SetString(n.String(), 10); !ok {
			return uint256.Int{}, fmt.Errorf("invalid integer %q", n)
		}
	default:
		u, err := toUint64(v)
		if err != nil {
			return uint256.Int{}, err
		}
		b = new(big.Int).SetUint64(u)
	}
	if b.Sign() < 0 {
		return uint256.Int{}, fmt.Errorf("%s is negative", b)
	}
	z, overflow := uint256.FromBig(b)
	if overflow {
		return uint256.Int{}, fmt.Errorf("%s overflows 256 bits", b)
	}
	return *z, nil
}

func toAddress(v interface{}) (common.Address, error) {
	s, ok := v.(string)
	if !ok {
		return common.Address{}, fmt.Errorf("expected hex address, got %T", v)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
