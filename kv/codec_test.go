package kv

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestU64RoundTrip(t *testing.T) {
	enc, err := U64.Encode(1_234_567)
	require.NoError(t, err)
	require.Len(t, enc, NumberLength)

	dec, err := U64.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234_567), dec)

	_, err = U64.Decode([]byte{1, 2, 3})
	require.ErrorAs(t, err, &InvalidLengthError{})
}

func TestU64Ordering(t *testing.T) {
	// big endian keys must sort like the numbers they encode
	a, _ := U64.Encode(255)
	b, _ := U64.Encode(256)
	require.Equal(t, -1, compareBytes(a, b))
}

func compareBytes(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func TestHashCodecRejectsWrongLength(t *testing.T) {
	_, err := Hash.Decode(make([]byte, 31))
	require.ErrorAs(t, err, &InvalidLengthError{})

	_, err = Address.Decode(make([]byte, 21))
	require.ErrorAs(t, err, &InvalidLengthError{})
}

func TestU256MinimalEncoding(t *testing.T) {
	enc, err := U256.Encode(uint256.NewInt(0))
	require.NoError(t, err)
	assert.Empty(t, enc)

	enc, err = U256.Encode(uint256.NewInt(0x1ff))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0xff}, enc)

	dec, err := U256.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1ff), dec.Uint64())

	_, err = U256.Decode(make([]byte, 33))
	require.ErrorAs(t, err, &TooLongError{})
}

func TestSendersCodec(t *testing.T) {
	addrs := []common.Address{
		common.HexToAddress("0x0000000000000000000000000000000000000001"),
		common.HexToAddress("0x0000000000000000000000000000000000000002"),
	}
	enc, err := SendersCodec.Encode(addrs)
	require.NoError(t, err)
	require.Len(t, enc, 2*AddrLength)

	dec, err := SendersCodec.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, addrs, dec)

	_, err = SendersCodec.Decode(enc[:21])
	require.Error(t, err)
}

func TestHeaderKeyCodec(t *testing.T) {
	k := HeaderKey{Number: 42, Hash: common.HexToHash("0xdead")}
	enc, err := HeaderKeyCodec.Encode(k)
	require.NoError(t, err)
	require.Len(t, enc, NumberLength+HashLength)

	dec, err := HeaderKeyCodec.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, k, dec)

	_, err = HeaderKeyCodec.Decode(enc[:20])
	require.ErrorAs(t, err, &InvalidLengthError{})
}

func TestStorageCSKeyCodec(t *testing.T) {
	k := StorageCSKey{
		Number: 7,
		K: StorageKey{
			Address:     common.HexToAddress("0x00000000000000000000000000000000000000aa"),
			Incarnation: 1,
		},
	}
	enc, err := StorageCSKeyCodec.Encode(k)
	require.NoError(t, err)
	require.Len(t, enc, NumberLength+AddrLength+IncarnationLength)

	dec, err := StorageCSKeyCodec.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, k, dec)
}

func TestStorageEntryCodec(t *testing.T) {
	e := StorageEntry{Location: common.HexToHash("0x22")}
	e.Value.SetUint64(0xbeef)

	enc, err := StorageEntryCodec.Encode(e)
	require.NoError(t, err)
	require.Len(t, enc, HashLength+2)

	dec, err := StorageEntryCodec.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, e.Location, dec.Location)
	assert.Equal(t, uint64(0xbeef), dec.Value.Uint64())

	_, err = StorageEntryCodec.Decode(make([]byte, HashLength-1))
	require.ErrorAs(t, err, &TooShortError{})

	_, err = StorageEntryCodec.Decode(make([]byte, 2*HashLength+1))
	require.ErrorAs(t, err, &TooLongError{})
}

func TestZeroStorageValueDropsFromEncoding(t *testing.T) {
	e := StorageEntry{Location: common.HexToHash("0x22")}
	enc, err := StorageEntryCodec.Encode(e)
	require.NoError(t, err)
	require.Len(t, enc, HashLength)
}

func TestCompactU64(t *testing.T) {
	enc, err := CompactU64.Encode(0x0102)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, enc)

	dec, err := CompactU64.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102), dec)

	dec, err = CompactU64.Decode(nil)
	require.NoError(t, err)
	assert.Zero(t, dec)

	_, err = CompactU64.Decode(make([]byte, 9))
	require.ErrorAs(t, err, &TooLongError{})
}

func TestConstKey(t *testing.T) {
	c := ConstKey("LastHeader")
	enc, err := c.Encode(Sentinel{})
	require.NoError(t, err)
	assert.Equal(t, []byte("LastHeader"), enc)

	_, err = c.Decode([]byte("LastBlock"))
	require.Error(t, err)
}

func TestIssuanceKeyCodec(t *testing.T) {
	plain := IssuanceKey{Number: 9}
	enc, err := IssuanceKeyCodec.Encode(plain)
	require.NoError(t, err)
	require.Len(t, enc, NumberLength)

	burnt := IssuanceKey{Burnt: true, Number: 9}
	encBurnt, err := IssuanceKeyCodec.Encode(burnt)
	require.NoError(t, err)
	require.Len(t, encBurnt, len("burnt")+NumberLength)

	dec, err := IssuanceKeyCodec.Decode(encBurnt)
	require.NoError(t, err)
	assert.Equal(t, burnt, dec)
}
