// Package bftextra defines the BFT header extra-data layout and its RLP codec.
//
// BFT chains store consensus metadata in the header's Extra field instead of
// relying on proof-of-work fields. The payload is an RLP list of:
//
//	[vanity (32 bytes), validators, vote (0 or 1 entries), round, commit seals]
//
// Header validation rules decode this payload to compare the advertised
// validator list against the expected one.
package bftextra

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// VanityLength is the fixed number of leading vanity bytes.
const VanityLength = 32

var (
	// ErrEmptyExtra is returned when a header carries no extra data at all.
	ErrEmptyExtra = errors.New("empty extra data")

	// ErrInvalidVanity is returned when the vanity prefix is not VanityLength bytes.
	ErrInvalidVanity = errors.New("invalid extra-data vanity length")

	// ErrTooManyVotes is returned when more than one vote is encoded.
	ErrTooManyVotes = errors.New("extra data carries more than one vote")
)

// Vote is a proposal to add (Authorize) or remove a validator.
type Vote struct {
	Recipient common.Address
	Authorize bool
}

// ExtraData is the decoded BFT extra-data payload.
type ExtraData struct {
	Vanity      []byte
	Validators  []common.Address
	Vote        []Vote // RLP list holding zero or one vote
	Round       uint32
	CommitSeals [][]byte
}

// Codec encodes and decodes BFT extra data.
type Codec interface {
	Decode(extra []byte) (*ExtraData, error)
	Encode(data *ExtraData) ([]byte, error)
}

// RLPCodec is the default Codec.
type RLPCodec struct{}

// Decode parses the header extra field.
func (RLPCodec) Decode(extra []byte) (*ExtraData, error) {
	if len(extra) == 0 {
		return nil, ErrEmptyExtra
	}
	var data ExtraData
	if err := rlp.DecodeBytes(extra, &data); err != nil {
		return nil, fmt.Errorf("decode bft extra data: %w", err)
	}
	if err := data.check(); err != nil {
		return nil, err
	}
	return &data, nil
}

// Encode serialises data into a header extra field.
func (RLPCodec) Encode(data *ExtraData) ([]byte, error) {
	if err := data.check(); err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(data)
}

func (d *ExtraData) check() error {
	if len(d.Vanity) != VanityLength {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidVanity, len(d.Vanity), VanityLength)
	}
	if len(d.Vote) > 1 {
		return ErrTooManyVotes
	}
	return nil
}

// VoteOf returns the single vote, if any.
func (d *ExtraData) VoteOf() (Vote, bool) {
	if len(d.Vote) == 0 {
		return Vote{}, false
	}
	return d.Vote[0], true
}

// New builds an extra-data payload with a zero vanity and no seals.
func New(validators []common.Address, round uint32) *ExtraData {
	return &ExtraData{
		Vanity:      make([]byte, VanityLength),
		Validators:  validators,
		Vote:        []Vote{},
		Round:       round,
		CommitSeals: [][]byte{},
	}
}
