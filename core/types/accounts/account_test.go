package accounts

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a := Account{
		Nonce:       42,
		Incarnation: 2,
		CodeHash:    common.HexToHash("0x1234"),
	}
	a.Balance.SetUint64(1_000_000)

	enc := a.EncodeForStorage()
	require.Len(t, enc, a.EncodingLengthForStorage())

	var got Account
	require.NoError(t, got.DecodeForStorage(enc))
	assert.Equal(t, a, got)
}

func TestDefaultAccountEncodesEmpty(t *testing.T) {
	var a Account
	enc := a.EncodeForStorage()
	assert.Empty(t, enc)

	var got Account
	require.NoError(t, got.DecodeForStorage(nil))
	assert.Equal(t, a, got)
}

func TestZeroFieldsAreOmitted(t *testing.T) {
	a := Account{Nonce: 1}
	enc := a.EncodeForStorage()
	// fieldset byte + length byte + one nonce byte
	require.Len(t, enc, 3)
	assert.Equal(t, byte(fieldNonce), enc[0])

	var got Account
	require.NoError(t, got.DecodeForStorage(enc))
	assert.Equal(t, uint64(1), got.Nonce)
	assert.True(t, got.Balance.IsZero())
	assert.Zero(t, got.Incarnation)
	assert.Equal(t, common.Hash{}, got.CodeHash)
}

func TestDecodeResetsReceiver(t *testing.T) {
	a := Account{Nonce: 7, Incarnation: 3}
	a.Balance.SetUint64(55)

	require.NoError(t, a.DecodeForStorage(nil))
	assert.True(t, a.IsEmpty())
}

func TestTrailingBytesAreAnError(t *testing.T) {
	a := Account{Nonce: 1}
	enc := a.EncodeForStorage()
	enc = append(enc, 0xff)

	var got Account
	err := got.DecodeForStorage(enc)
	require.ErrorContains(t, err, "trailing bytes")
}

func TestUnknownFieldsetBitsAreAnError(t *testing.T) {
	var got Account
	err := got.DecodeForStorage([]byte{0x10})
	require.ErrorContains(t, err, "unknown account fieldset bits")
}

func TestTruncatedFieldIsAnError(t *testing.T) {
	// balance flagged with a 4-byte length but only 2 bytes present
	enc := []byte{fieldBalance, 4, 0x01, 0x02}
	var got Account
	require.Error(t, got.DecodeForStorage(enc))

	// missing length byte entirely
	require.Error(t, got.DecodeForStorage([]byte{fieldNonce}))
}

func TestCodeHashMustBe32Bytes(t *testing.T) {
	enc := []byte{fieldCodeHash, 31}
	enc = append(enc, make([]byte, 31)...)
	var got Account
	require.ErrorContains(t, got.DecodeForStorage(enc), "code hash")
}

func TestIsEmptyCodeHash(t *testing.T) {
	assert.True(t, IsEmptyCodeHash(common.Hash{}))
	assert.True(t, IsEmptyCodeHash(EmptyCodeHash))
	assert.False(t, IsEmptyCodeHash(common.HexToHash("0x01")))
}

func TestEncodeIsMinimalBigEndian(t *testing.T) {
	a := Account{Nonce: 0x0100}
	enc := a.EncodeForStorage()
	assert.Equal(t, []byte{fieldNonce, 2, 0x01, 0x00}, enc)
}
