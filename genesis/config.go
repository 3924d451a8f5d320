// Package genesis reads the consensus section of a genesis file. The genesis
// file is the only place fork transitions are declared: every node on the
// network must load the same file to agree on which header rules apply at
// which height.
//
// Key concepts:
//   - ChainConfig: the "config" object, holding one BFT flavor section
//   - Transitions: per-flavor lists of {block, ...changed keys}
//   - Forks: the flavor, its base keys and its transitions, ready for bft.ParseForks
//
// Usage:
//
//	gen, err := genesis.Load("genesis.json")
//	schedule, err := gen.Schedule()
//
// Only the consensus-related parts of the genesis file are modelled; account
// allocations and other execution state are ignored.
package genesis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/rony4d/go-opera-forks/bft"
	"github.com/rony4d/go-opera-forks/forks"
	"github.com/rony4d/go-opera-forks/inter/bftextra"
)

var (
	// ErrNoConsensus is returned when the config names no BFT flavor.
	ErrNoConsensus = errors.New("genesis config has no qbft or ibft2 section")

	// ErrManyConsensus is returned when the config names more than one flavor.
	ErrManyConsensus = errors.New("genesis config has both qbft and ibft2 sections")
)

// Genesis is the subset of a genesis file this module reads.
type Genesis struct {
	Config    ChainConfig    `json:"config"`
	ExtraData hexutil.Bytes  `json:"extraData,omitempty"` // RLP encoded bftextra payload of block 0
	GasLimit  hexutil.Uint64 `json:"gasLimit,omitempty"`
}

// ChainConfig is the "config" object of a genesis file.
type ChainConfig struct {
	ChainID     *big.Int               `json:"chainId,omitempty"` // EIP-155 chain id
	Qbft        map[string]interface{} `json:"qbft,omitempty"`
	Ibft2       map[string]interface{} `json:"ibft2,omitempty"`
	Transitions Transitions            `json:"transitions,omitempty"`
}

// Transitions lists fork transitions per flavor. Only the list matching the
// configured flavor is used; entries for the other flavor are an error.
type Transitions struct {
	Qbft  []Transition `json:"qbft,omitempty"`
	Ibft2 []Transition `json:"ibft2,omitempty"`
}

// Transition is one fork: the activation block plus the keys it changes.
type Transition struct {
	Block  uint64
	Config map[string]interface{}
}

// UnmarshalJSON splits the "block" key from the changed options.
func (t *Transition) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	found := false
	for k, v := range raw {
		if !strings.EqualFold(k, "block") {
			continue
		}
		block, err := parseBlock(v)
		if err != nil {
			return fmt.Errorf("transition block: %w", err)
		}
		t.Block = block
		delete(raw, k)
		found = true
		break
	}
	if !found {
		return errors.New("transition without block number")
	}
	t.Config = raw
	return nil
}

// MarshalJSON writes the transition back in its flat form.
func (t Transition) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(t.Config)+1)
	for k, v := range t.Config {
		flat[k] = v
	}
	flat["block"] = t.Block
	return json.Marshal(flat)
}

func parseBlock(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	case string:
		if strings.HasPrefix(n, "0x") {
			return hexutil.DecodeUint64(n)
		}
		return strconv.ParseUint(n, 10, 64)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// Load reads a genesis file from disk.
func Load(path string) (*Genesis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genesis %s: %w", path, err)
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("genesis %s: %w", path, err)
	}
	return g, nil
}

// Decode parses a genesis document. Numbers inside the flavor sections are
// kept as json.Number so large values survive untouched.
func Decode(r io.Reader) (*Genesis, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var g Genesis
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	return &g, nil
}

// Forks returns the configured flavor with its base options and transitions.
func (g *Genesis) Forks() (bft.Protocol, map[string]interface{}, []bft.RawFork, error) {
	c := g.Config
	switch {
	case c.Qbft != nil && c.Ibft2 != nil:
		return "", nil, nil, ErrManyConsensus
	case c.Qbft != nil:
		if len(c.Transitions.Ibft2) > 0 {
			return "", nil, nil, errors.New("ibft2 transitions on a qbft chain")
		}
		return bft.QBFT, c.Qbft, rawForks(c.Transitions.Qbft), nil
	case c.Ibft2 != nil:
		if len(c.Transitions.Qbft) > 0 {
			return "", nil, nil, errors.New("qbft transitions on an ibft2 chain")
		}
		return bft.IBFT2, c.Ibft2, rawForks(c.Transitions.Ibft2), nil
	default:
		return "", nil, nil, ErrNoConsensus
	}
}

func rawForks(ts []Transition) []bft.RawFork {
	out := make([]bft.RawFork, len(ts))
	for i, t := range ts {
		out[i] = bft.RawFork{Block: t.Block, Config: t.Config}
	}
	return out
}

// Schedule parses the fork schedule declared by the genesis.
func (g *Genesis) Schedule() (*forks.Schedule[bft.ConfigOptions], error) {
	p, base, transitions, err := g.Forks()
	if err != nil {
		return nil, err
	}
	return bft.ParseForks(p, base, transitions)
}

// Validators decodes the validator list of block 0 from the genesis extra
// data. It returns nil when the genesis carries no extra data.
func (g *Genesis) Validators() ([]common.Address, error) {
	if len(g.ExtraData) == 0 {
		return nil, nil
	}
	extra, err := bftextra.RLPCodec{}.Decode(g.ExtraData)
	if err != nil {
		return nil, fmt.Errorf("genesis extra data: %w", err)
	}
	return extra.Validators, nil
}
