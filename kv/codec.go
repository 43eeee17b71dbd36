package kv

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Byte widths of the fixed-size key components.
const (
	HashLength        = 32
	AddrLength        = 20
	NumberLength      = 8
	IncarnationLength = 8
)

// TooShortError is returned when decoding input shorter than the type's
// minimum encoded size.
type TooShortError struct {
	Min, Got int
}

func (e TooShortError) Error() string {
	return fmt.Sprintf("too short: %d < %d", e.Got, e.Min)
}

// TooLongError is returned when decoding input longer than the type's
// maximum encoded size.
type TooLongError struct {
	Max, Got int
}

func (e TooLongError) Error() string {
	return fmt.Sprintf("too long: %d > %d", e.Got, e.Max)
}

// InvalidLengthError is returned when decoding input whose length differs
// from the type's fixed encoded size.
type InvalidLengthError struct {
	Expected, Got int
}

func (e InvalidLengthError) Error() string {
	return fmt.Sprintf("invalid length: %d != %d", e.Got, e.Expected)
}

// Codec binds a semantic type to its canonical byte encoding. Encoding is
// deterministic; decoding fails on malformed input instead of truncating.
type Codec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// EncodeTs encodes a block number (or any timestamp-like counter) as big
// endian uint64, so lexicographic byte order matches numeric order.
func EncodeTs(number uint64) []byte {
	enc := make([]byte, NumberLength)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

func DecodeTs(b []byte) (uint64, error) {
	if len(b) != NumberLength {
		return 0, InvalidLengthError{Expected: NumberLength, Got: len(b)}
	}
	return binary.BigEndian.Uint64(b), nil
}

var U64 = Codec[uint64]{
	Encode: func(n uint64) ([]byte, error) { return EncodeTs(n), nil },
	Decode: DecodeTs,
}

var Hash = Codec[common.Hash]{
	Encode: func(h common.Hash) ([]byte, error) { return h[:], nil },
	Decode: func(b []byte) (common.Hash, error) {
		if len(b) != HashLength {
			return common.Hash{}, InvalidLengthError{Expected: HashLength, Got: len(b)}
		}
		return common.BytesToHash(b), nil
	},
}

var Address = Codec[common.Address]{
	Encode: func(a common.Address) ([]byte, error) { return a[:], nil },
	Decode: func(b []byte) (common.Address, error) {
		if len(b) != AddrLength {
			return common.Address{}, InvalidLengthError{Expected: AddrLength, Got: len(b)}
		}
		return common.BytesToAddress(b), nil
	},
}

// Bytes is the identity codec. Decode copies, because mdbx value slices are
// only valid until the end of the transaction.
var Bytes = Codec[[]byte]{
	Encode: func(b []byte) ([]byte, error) { return b, nil },
	Decode: func(b []byte) ([]byte, error) {
		c := make([]byte, len(b))
		copy(c, b)
		return c, nil
	},
}

// U256 stores a 256-bit integer as its minimal big-endian form: leading
// zeroes stripped, the zero value as the empty string.
var U256 = Codec[*uint256.Int]{
	Encode: func(i *uint256.Int) ([]byte, error) { return i.Bytes(), nil },
	Decode: func(b []byte) (*uint256.Int, error) {
		if len(b) > HashLength {
			return nil, TooLongError{Max: HashLength, Got: len(b)}
		}
		return new(uint256.Int).SetBytes(b), nil
	},
}

// Senders lists are stored with no serialization format: every 20 bytes is
// a new address.
var SendersCodec = Codec[[]common.Address]{
	Encode: func(addrs []common.Address) ([]byte, error) {
		v := make([]byte, 0, len(addrs)*AddrLength)
		for _, a := range addrs {
			v = append(v, a[:]...)
		}
		return v, nil
	},
	Decode: func(b []byte) ([]common.Address, error) {
		if len(b)%AddrLength != 0 {
			return nil, fmt.Errorf("senders length %d not divisible by %d", len(b), AddrLength)
		}
		addrs := make([]common.Address, len(b)/AddrLength)
		for i := 0; i < len(addrs); i++ {
			copy(addrs[i][:], b[i*AddrLength:])
		}
		return addrs, nil
	},
}

// Sentinel is the key of single-row tables: the table's own name encoded as
// a fixed literal, so a lookup against the wrong table cannot match.
type Sentinel struct{}

func ConstKey(name string) Codec[Sentinel] {
	enc := []byte(name)
	return Codec[Sentinel]{
		Encode: func(Sentinel) ([]byte, error) { return enc, nil },
		Decode: func(b []byte) (Sentinel, error) {
			if !bytes.Equal(b, enc) {
				return Sentinel{}, fmt.Errorf("sentinel key mismatch: %q != %q", b, enc)
			}
			return Sentinel{}, nil
		},
	}
}
