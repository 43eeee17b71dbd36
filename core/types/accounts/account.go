package accounts

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Account is the plain-state representation of an Ethereum account.
// Contract storage is incarnation-scoped: self-destruct followed by
// re-creation bumps Incarnation instead of deleting old slots.
type Account struct {
	Nonce       uint64
	Balance     uint256.Int
	Incarnation uint64
	CodeHash    common.Hash
}

// EmptyCodeHash is keccak256 of the empty byte string.
var EmptyCodeHash = common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

// IsEmptyCodeHash treats both the zero hash and the hash of empty code as
// "no code": the plain state stores either form for EOAs.
func IsEmptyCodeHash(h common.Hash) bool {
	return h == (common.Hash{}) || h == EmptyCodeHash
}

// Storage encoding: a leading fieldset bitmask byte, then for each set bit in
// ascending order a 1-byte length followed by the field's minimal big-endian
// bytes. Zero-valued fields are omitted entirely.
const (
	fieldNonce       = 1
	fieldBalance     = 2
	fieldIncarnation = 4
	fieldCodeHash    = 8
)

func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && a.Incarnation == 0 && a.CodeHash == (common.Hash{})
}

// EncodingLengthForStorage returns the exact size EncodeForStorage produces.
func (a *Account) EncodingLengthForStorage() int {
	if a.IsEmpty() {
		return 0
	}
	l := 1
	if a.Nonce > 0 {
		l += 1 + minimalByteLen(a.Nonce)
	}
	if !a.Balance.IsZero() {
		l += 1 + a.Balance.ByteLen()
	}
	if a.Incarnation > 0 {
		l += 1 + minimalByteLen(a.Incarnation)
	}
	if a.CodeHash != (common.Hash{}) {
		l += 1 + common.HashLength
	}
	return l
}

// EncodeForStorage serializes the account. The all-default account encodes
// to the empty string, matching what DecodeForStorage accepts for it.
func (a *Account) EncodeForStorage() []byte {
	if a.IsEmpty() {
		return []byte{}
	}
	buf := make([]byte, 0, a.EncodingLengthForStorage())
	buf = append(buf, 0) // fieldset, patched below
	var fieldset byte
	if a.Nonce > 0 {
		fieldset |= fieldNonce
		buf = appendU64Field(buf, a.Nonce)
	}
	if !a.Balance.IsZero() {
		fieldset |= fieldBalance
		n := a.Balance.ByteLen()
		buf = append(buf, byte(n))
		pos := len(buf)
		buf = append(buf, make([]byte, n)...)
		a.Balance.WriteToSlice(buf[pos:])
	}
	if a.Incarnation > 0 {
		fieldset |= fieldIncarnation
		buf = appendU64Field(buf, a.Incarnation)
	}
	if a.CodeHash != (common.Hash{}) {
		fieldset |= fieldCodeHash
		buf = append(buf, common.HashLength)
		buf = append(buf, a.CodeHash[:]...)
	}
	buf[0] = fieldset
	return buf
}

// DecodeForStorage parses a stored account. The empty string decodes to the
// default account. Any bytes left over after the flagged fields are a hard
// error rather than silently ignored: an upstream schema change must surface
// as a decode failure, not as a truncated account.
func (a *Account) DecodeForStorage(enc []byte) error {
	a.Nonce = 0
	a.Balance.Clear()
	a.Incarnation = 0
	a.CodeHash = common.Hash{}
	if len(enc) == 0 {
		return nil
	}
	fieldset := enc[0]
	if fieldset&^(fieldNonce|fieldBalance|fieldIncarnation|fieldCodeHash) != 0 {
		return fmt.Errorf("unknown account fieldset bits: %#x", fieldset)
	}
	pos := 1

	readField := func(name string) ([]byte, error) {
		if pos >= len(enc) {
			return nil, fmt.Errorf("malformed account: no length byte for %s", name)
		}
		n := int(enc[pos])
		pos++
		if pos+n > len(enc) {
			return nil, fmt.Errorf("malformed account: %s needs %d bytes, %d left", name, n, len(enc)-pos)
		}
		f := enc[pos : pos+n]
		pos += n
		return f, nil
	}

	if fieldset&fieldNonce != 0 {
		f, err := readField("nonce")
		if err != nil {
			return err
		}
		if len(f) > 8 {
			return fmt.Errorf("malformed account: nonce field of %d bytes", len(f))
		}
		a.Nonce = bytesToU64(f)
	}
	if fieldset&fieldBalance != 0 {
		f, err := readField("balance")
		if err != nil {
			return err
		}
		if len(f) > 32 {
			return fmt.Errorf("malformed account: balance field of %d bytes", len(f))
		}
		a.Balance.SetBytes(f)
	}
	if fieldset&fieldIncarnation != 0 {
		f, err := readField("incarnation")
		if err != nil {
			return err
		}
		if len(f) > 8 {
			return fmt.Errorf("malformed account: incarnation field of %d bytes", len(f))
		}
		a.Incarnation = bytesToU64(f)
	}
	if fieldset&fieldCodeHash != 0 {
		f, err := readField("code hash")
		if err != nil {
			return err
		}
		if len(f) != common.HashLength {
			return fmt.Errorf("malformed account: code hash of %d bytes", len(f))
		}
		a.CodeHash = common.BytesToHash(f)
	}
	if pos != len(enc) {
		return fmt.Errorf("malformed account: %d trailing bytes", len(enc)-pos)
	}
	return nil
}

func minimalByteLen(n uint64) int {
	l := 0
	for n > 0 {
		l++
		n >>= 8
	}
	return l
}

func appendU64Field(buf []byte, n uint64) []byte {
	l := minimalByteLen(n)
	buf = append(buf, byte(l))
	for i := l - 1; i >= 0; i-- {
		buf = append(buf, byte(n>>(8*i)))
	}
	return buf
}

func bytesToU64(b []byte) uint64 {
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n
}
