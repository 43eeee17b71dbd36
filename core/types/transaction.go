package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Transaction type tags, as they appear in the typed-envelope first byte.
const (
	LegacyTxType     = 0x00
	AccessListTxType = 0x01
	DynamicFeeTxType = 0x02
)

var ErrTxTypeNotSupported = errors.New("unknown transaction type")

// Transaction is the union over the three supported envelope variants.
// Returning structs behind one interface keeps cursor walks over the
// transaction table homogeneous while the concrete type stays recoverable
// by assertion.
type Transaction interface {
	Type() byte
	GetNonce() uint64
	GetGas() uint64
	GetPrice() *uint256.Int  // effective gas price field: GasPrice or FeeCap
	GetTip() *uint256.Int    // priority fee; equals GasPrice for pre-1559
	GetValue() *uint256.Int
	GetTo() *common.Address // nil means contract creation
	GetData() []byte
	GetChainID() *uint256.Int // nil for pre-EIP-155 legacy transactions
	RawSignatureValues() (v, r, s *uint256.Int)
	Hash() common.Hash
	SigningHash() common.Hash
}

// AccessTuple is one entry of an EIP-2930 access list.
type AccessTuple struct {
	Address     common.Address
	StorageKeys []common.Hash
}

type AccessList []AccessTuple

type LegacyTx struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *uint256.Int
	Data     []byte
	V, R, S  *uint256.Int
}

type AccessListTx struct {
	ChainID    *uint256.Int
	Nonce      uint64
	GasPrice   *uint256.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *uint256.Int
}

type DynamicFeeTx struct {
	ChainID    *uint256.Int
	Nonce      uint64
	Tip        *uint256.Int
	FeeCap     *uint256.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *uint256.Int
	Data       []byte
	AccessList AccessList
	V, R, S    *uint256.Int
}

// DeriveChainId recovers the chain id from an EIP-155 legacy v value:
// v = recovery + 35 + 2*chainID. The pre-155 values 27 and 28 carry no
// chain id.
func DeriveChainId(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	if v.IsUint64() {
		vu := v.Uint64()
		if vu == 27 || vu == 28 {
			return nil
		}
		return new(uint256.Int).SetUint64((vu - 35) / 2)
	}
	r := new(uint256.Int).Sub(v, uint256.NewInt(35))
	return r.Rsh(r, 1)
}

// DecodeTransaction parses a stored transaction. A payload starting with an
// RLP list is a legacy transaction; anything else is an RLP string wrapping
// a typed envelope whose first byte selects the variant.
func DecodeTransaction(data []byte) (Transaction, error) {
	if len(data) == 0 {
		return nil, errors.New("empty transaction payload")
	}
	if data[0] >= 0xc0 {
		var tx LegacyTx
		if err := rlp.DecodeBytes(data, &tx); err != nil {
			return nil, err
		}
		return &tx, nil
	}
	var envelope []byte
	if err := rlp.DecodeBytes(data, &envelope); err != nil {
		return nil, err
	}
	if len(envelope) == 0 {
		return nil, errors.New("empty typed transaction envelope")
	}
	switch envelope[0] {
	case AccessListTxType:
		var tx AccessListTx
		if err := rlp.DecodeBytes(envelope[1:], &tx); err != nil {
			return nil, err
		}
		return &tx, nil
	case DynamicFeeTxType:
		var tx DynamicFeeTx
		if err := rlp.DecodeBytes(envelope[1:], &tx); err != nil {
			return nil, err
		}
		return &tx, nil
	default:
		return nil, fmt.Errorf("%w: %#x", ErrTxTypeNotSupported, envelope[0])
	}
}

// EncodeTransaction produces the stored form decoded by DecodeTransaction.
func EncodeTransaction(txn Transaction) ([]byte, error) {
	switch t := txn.(type) {
	case *LegacyTx:
		return rlp.EncodeToBytes(t)
	case *AccessListTx:
		payload, err := rlp.EncodeToBytes(t)
		if err != nil {
			return nil, err
		}
		return rlp.EncodeToBytes(append([]byte{AccessListTxType}, payload...))
	case *DynamicFeeTx:
		payload, err := rlp.EncodeToBytes(t)
		if err != nil {
			return nil, err
		}
		return rlp.EncodeToBytes(append([]byte{DynamicFeeTxType}, payload...))
	default:
		return nil, fmt.Errorf("%w: %T", ErrTxTypeNotSupported, txn)
	}
}

func (tx *LegacyTx) Type() byte             { return LegacyTxType }
func (tx *LegacyTx) GetNonce() uint64       { return tx.Nonce }
func (tx *LegacyTx) GetGas() uint64         { return tx.Gas }
func (tx *LegacyTx) GetPrice() *uint256.Int { return tx.GasPrice }
func (tx *LegacyTx) GetTip() *uint256.Int   { return tx.GasPrice }
func (tx *LegacyTx) GetValue() *uint256.Int { return tx.Value }
func (tx *LegacyTx) GetTo() *common.Address { return tx.To }
func (tx *LegacyTx) GetData() []byte        { return tx.Data }

func (tx *LegacyTx) GetChainID() *uint256.Int { return DeriveChainId(tx.V) }

func (tx *LegacyTx) RawSignatureValues() (v, r, s *uint256.Int) { return tx.V, tx.R, tx.S }

func (tx *LegacyTx) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		panic("legacy tx rlp encoding failed: " + err.Error())
	}
	return keccak256(enc)
}

// SigningHash for a legacy transaction: six fields pre-EIP-155, nine fields
// (chainID, 0, 0 appended) once the v value encodes a chain id.
func (tx *LegacyTx) SigningHash() common.Hash {
	chainID := tx.GetChainID()
	if chainID == nil {
		enc, err := rlp.EncodeToBytes(struct {
			Nonce    uint64
			GasPrice *uint256.Int
			Gas      uint64
			To       *common.Address `rlp:"nil"`
			Value    *uint256.Int
			Data     []byte
		}{tx.Nonce, tx.GasPrice, tx.Gas, tx.To, tx.Value, tx.Data})
		if err != nil {
			panic("legacy signing hash rlp failed: " + err.Error())
		}
		return keccak256(enc)
	}
	enc, err := rlp.EncodeToBytes(struct {
		Nonce    uint64
		GasPrice *uint256.Int
		Gas      uint64
		To       *common.Address `rlp:"nil"`
		Value    *uint256.Int
		Data     []byte
		ChainID  *uint256.Int
		Zero1    uint64
		Zero2    uint64
	}{tx.Nonce, tx.GasPrice, tx.Gas, tx.To, tx.Value, tx.Data, chainID, 0, 0})
	if err != nil {
		panic("legacy signing hash rlp failed: " + err.Error())
	}
	return keccak256(enc)
}

func (tx *AccessListTx) Type() byte               { return AccessListTxType }
func (tx *AccessListTx) GetNonce() uint64         { return tx.Nonce }
func (tx *AccessListTx) GetGas() uint64           { return tx.Gas }
func (tx *AccessListTx) GetPrice() *uint256.Int   { return tx.GasPrice }
func (tx *AccessListTx) GetTip() *uint256.Int     { return tx.GasPrice }
func (tx *AccessListTx) GetValue() *uint256.Int   { return tx.Value }
func (tx *AccessListTx) GetTo() *common.Address   { return tx.To }
func (tx *AccessListTx) GetData() []byte          { return tx.Data }
func (tx *AccessListTx) GetChainID() *uint256.Int { return tx.ChainID }

func (tx *AccessListTx) RawSignatureValues() (v, r, s *uint256.Int) { return tx.V, tx.R, tx.S }

func (tx *AccessListTx) Hash() common.Hash {
	payload, err := rlp.EncodeToBytes(tx)
	if err != nil {
		panic("access list tx rlp encoding failed: " + err.Error())
	}
	return keccak256([]byte{AccessListTxType}, payload)
}

func (tx *AccessListTx) SigningHash() common.Hash {
	enc, err := rlp.EncodeToBytes(struct {
		ChainID    *uint256.Int
		Nonce      uint64
		GasPrice   *uint256.Int
		Gas        uint64
		To         *common.Address `rlp:"nil"`
		Value      *uint256.Int
		Data       []byte
		AccessList AccessList
	}{tx.ChainID, tx.Nonce, tx.GasPrice, tx.Gas, tx.To, tx.Value, tx.Data, tx.AccessList})
	if err != nil {
		panic("access list signing hash rlp failed: " + err.Error())
	}
	return keccak256([]byte{AccessListTxType}, enc)
}

func (tx *DynamicFeeTx) Type() byte               { return DynamicFeeTxType }
func (tx *DynamicFeeTx) GetNonce() uint64         { return tx.Nonce }
func (tx *DynamicFeeTx) GetGas() uint64           { return tx.Gas }
func (tx *DynamicFeeTx) GetPrice() *uint256.Int   { return tx.FeeCap }
func (tx *DynamicFeeTx) GetTip() *uint256.Int     { return tx.Tip }
func (tx *DynamicFeeTx) GetValue() *uint256.Int   { return tx.Value }
func (tx *DynamicFeeTx) GetTo() *common.Address   { return tx.To }
func (tx *DynamicFeeTx) GetData() []byte          { return tx.Data }
func (tx *DynamicFeeTx) GetChainID() *uint256.Int { return tx.ChainID }

func (tx *DynamicFeeTx) RawSignatureValues() (v, r, s *uint256.Int) { return tx.V, tx.R, tx.S }

func (tx *DynamicFeeTx) Hash() common.Hash {
	payload, err := rlp.EncodeToBytes(tx)
	if err != nil {
		panic("dynamic fee tx rlp encoding failed: " + err.Error())
	}
	return keccak256([]byte{DynamicFeeTxType}, payload)
}

func (tx *DynamicFeeTx) SigningHash() common.Hash {
	enc, err := rlp.EncodeToBytes(struct {
		ChainID    *uint256.Int
		Nonce      uint64
		Tip        *uint256.Int
		FeeCap     *uint256.Int
		Gas        uint64
		To         *common.Address `rlp:"nil"`
		Value      *uint256.Int
		Data       []byte
		AccessList AccessList
	}{tx.ChainID, tx.Nonce, tx.Tip, tx.FeeCap, tx.Gas, tx.To, tx.Value, tx.Data, tx.AccessList})
	if err != nil {
		panic("dynamic fee signing hash rlp failed: " + err.Error())
	}
	return keccak256([]byte{DynamicFeeTxType}, enc)
}
