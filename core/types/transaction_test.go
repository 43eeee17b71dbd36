package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyFixture() *LegacyTx {
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	return &LegacyTx{
		Nonce:    3,
		GasPrice: uint256.NewInt(1_000_000_000),
		Gas:      21_000,
		To:       &to,
		Value:    uint256.NewInt(5),
		V:        uint256.NewInt(37), // chain id 1, recovery 0
		R:        uint256.NewInt(10),
		S:        uint256.NewInt(11),
	}
}

func dynamicFeeFixture() *DynamicFeeTx {
	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	return &DynamicFeeTx{
		ChainID: uint256.NewInt(1),
		Nonce:   7,
		Tip:     uint256.NewInt(2),
		FeeCap:  uint256.NewInt(100),
		Gas:     30_000,
		To:      &to,
		Value:   uint256.NewInt(1),
		AccessList: AccessList{{
			Address:     common.HexToAddress("0x00000000000000000000000000000000000000cc"),
			StorageKeys: []common.Hash{common.HexToHash("0x01")},
		}},
		V: uint256.NewInt(1),
		R: uint256.NewInt(10),
		S: uint256.NewInt(11),
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	txn := legacyFixture()
	enc, err := EncodeTransaction(txn)
	require.NoError(t, err)
	// legacy payloads are bare rlp lists
	require.GreaterOrEqual(t, enc[0], byte(0xc0))

	dec, err := DecodeTransaction(enc)
	require.NoError(t, err)
	got, ok := dec.(*LegacyTx)
	require.True(t, ok)
	assert.Equal(t, txn.Nonce, got.Nonce)
	assert.Equal(t, txn.To, got.To)
	assert.Equal(t, byte(LegacyTxType), dec.Type())
}

func TestDynamicFeeRoundTrip(t *testing.T) {
	txn := dynamicFeeFixture()
	enc, err := EncodeTransaction(txn)
	require.NoError(t, err)
	// typed payloads are rlp strings, never lists
	require.Less(t, enc[0], byte(0xc0))

	dec, err := DecodeTransaction(enc)
	require.NoError(t, err)
	got, ok := dec.(*DynamicFeeTx)
	require.True(t, ok)
	assert.Equal(t, byte(DynamicFeeTxType), dec.Type())
	assert.Equal(t, txn.Tip, got.Tip)
	assert.Equal(t, txn.FeeCap, got.FeeCap)
	assert.Len(t, got.AccessList, 1)
}

func TestAccessListRoundTrip(t *testing.T) {
	to := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	txn := &AccessListTx{
		ChainID:  uint256.NewInt(5),
		Nonce:    1,
		GasPrice: uint256.NewInt(3),
		Gas:      50_000,
		To:       &to,
		Value:    uint256.NewInt(0),
		V:        uint256.NewInt(0),
		R:        uint256.NewInt(1),
		S:        uint256.NewInt(2),
	}
	enc, err := EncodeTransaction(txn)
	require.NoError(t, err)

	dec, err := DecodeTransaction(enc)
	require.NoError(t, err)
	assert.Equal(t, byte(AccessListTxType), dec.Type())
	assert.Equal(t, uint256.NewInt(5), dec.GetChainID())
}

func TestUnknownTypeTagFails(t *testing.T) {
	envelope, err := rlp.EncodeToBytes([]byte{0x7f, 0x01, 0x02})
	require.NoError(t, err)

	_, err = DecodeTransaction(envelope)
	require.ErrorIs(t, err, ErrTxTypeNotSupported)
}

func TestEmptyPayloadFails(t *testing.T) {
	_, err := DecodeTransaction(nil)
	require.Error(t, err)
}

func TestContractCreationHasNilTo(t *testing.T) {
	txn := &LegacyTx{
		Nonce:    0,
		GasPrice: uint256.NewInt(1),
		Gas:      100_000,
		Value:    uint256.NewInt(0),
		Data:     []byte{0x60, 0x00},
		V:        uint256.NewInt(27),
		R:        uint256.NewInt(1),
		S:        uint256.NewInt(2),
	}
	enc, err := EncodeTransaction(txn)
	require.NoError(t, err)

	dec, err := DecodeTransaction(enc)
	require.NoError(t, err)
	assert.Nil(t, dec.GetTo())
}

func TestDeriveChainId(t *testing.T) {
	assert.Nil(t, DeriveChainId(uint256.NewInt(27)))
	assert.Nil(t, DeriveChainId(uint256.NewInt(28)))
	assert.Equal(t, uint64(1), DeriveChainId(uint256.NewInt(37)).Uint64())
	assert.Equal(t, uint64(1), DeriveChainId(uint256.NewInt(38)).Uint64())
	assert.Equal(t, uint64(5), DeriveChainId(uint256.NewInt(45)).Uint64())
}

func TestSigningHashDiffersFromTxHash(t *testing.T) {
	txn := legacyFixture()
	assert.NotEqual(t, txn.Hash(), txn.SigningHash())

	dyn := dynamicFeeFixture()
	assert.NotEqual(t, dyn.Hash(), dyn.SigningHash())
}

func TestSigningHashIgnoresSignature(t *testing.T) {
	a := dynamicFeeFixture()
	b := dynamicFeeFixture()
	b.R = uint256.NewInt(999)
	assert.Equal(t, a.SigningHash(), b.SigningHash())
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestHeaderOptionalBaseFee(t *testing.T) {
	h := &Header{
		Difficulty: uint256.NewInt(100),
		Number:     1,
		GasLimit:   8_000_000,
		Time:       1_600_000_000,
		Extra:      []byte{},
	}
	enc, err := rlp.EncodeToBytes(h)
	require.NoError(t, err)

	var got Header
	require.NoError(t, rlp.DecodeBytes(enc, &got))
	assert.Nil(t, got.BaseFee)

	h.BaseFee = uint256.NewInt(7)
	enc, err = rlp.EncodeToBytes(h)
	require.NoError(t, err)
	require.NoError(t, rlp.DecodeBytes(enc, &got))
	require.NotNil(t, got.BaseFee)
	assert.Equal(t, uint64(7), got.BaseFee.Uint64())
}

func TestReceiptsCborRoundTrip(t *testing.T) {
	rs := Receipts{
		{Type: LegacyTxType, Status: ReceiptStatusSuccessful, CumulativeGasUsed: 21_000},
		{Type: DynamicFeeTxType, Status: ReceiptStatusFailed, CumulativeGasUsed: 42_000},
	}
	enc, err := EncodeReceipts(rs)
	require.NoError(t, err)

	got, err := DecodeReceipts(enc)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rs[0].CumulativeGasUsed, got[0].CumulativeGasUsed)
	assert.Equal(t, rs[1].Status, got[1].Status)
}

func TestLogsCborRoundTrip(t *testing.T) {
	ls := Logs{{
		Address: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Topics:  []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")},
		Data:    []byte{1, 2, 3},
	}}
	enc, err := EncodeLogs(ls)
	require.NoError(t, err)

	got, err := DecodeLogs(enc)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ls[0].Address, got[0].Address)
	assert.Equal(t, ls[0].Topics, got[0].Topics)
}
