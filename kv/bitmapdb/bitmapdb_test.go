package bitmapdb

import (
	"context"
	"testing"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/ledgerwatch/log/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erigondata/erigondb/kv"
)

func TestSeekInBitmap64(t *testing.T) {
	m := roaring64.BitmapOf(5, 10, 20)

	v, ok := SeekInBitmap64(m, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(5), v)

	v, ok = SeekInBitmap64(m, 6)
	require.True(t, ok)
	assert.Equal(t, uint64(10), v)

	// an exact member is its own answer
	v, ok = SeekInBitmap64(m, 10)
	require.True(t, ok)
	assert.Equal(t, uint64(10), v)

	_, ok = SeekInBitmap64(m, 21)
	assert.False(t, ok)

	_, ok = SeekInBitmap64(roaring64.New(), 0)
	assert.False(t, ok)
}

func TestCutLeft64(t *testing.T) {
	m := roaring64.New()
	for i := uint64(0); i < 10_000; i += 2 {
		m.Add(i)
	}
	total := m.GetCardinality()

	var pieces []*roaring64.Bitmap
	work := m.Clone()
	for {
		lft := CutLeft64(work, 256)
		if lft == nil {
			break
		}
		require.LessOrEqual(t, lft.GetSerializedSizeInBytes(), uint64(256))
		pieces = append(pieces, lft)
	}
	require.NotEmpty(t, pieces)

	union := roaring64.New()
	var prevMax uint64
	for i, p := range pieces {
		if i > 0 {
			require.Greater(t, p.Minimum(), prevMax)
		}
		prevMax = p.Maximum()
		union.Or(p)
	}
	assert.Equal(t, total, union.GetCardinality())
	assert.True(t, union.Equals(m))
}

func TestPutAndGetChunked(t *testing.T) {
	db := kv.NewMDBX(log.New()).InMem().MustOpen()
	t.Cleanup(db.Close)
	ctx := context.Background()

	key := []byte("some-index-key-material")
	m := roaring64.New()
	for i := uint64(0); i < 50_000; i += 3 {
		m.Add(i)
	}

	err := db.Update(ctx, func(tx *kv.RwTx) error {
		return PutBitmap64(tx, kv.AccountsHistory, key, m.Clone())
	})
	require.NoError(t, err)

	err = db.View(ctx, func(tx *kv.Tx) error {
		got, err := Get64(tx, kv.AccountsHistory, key)
		require.NoError(t, err)
		assert.True(t, got.Equals(m))
		return nil
	})
	require.NoError(t, err)
}

func TestLastChunkCarriesTerminator(t *testing.T) {
	key := []byte("k")
	m := roaring64.BitmapOf(1, 2, 3)

	var keys [][]byte
	err := WalkChunkWithKeys64(key, m, ChunkLimit, func(chunkKey []byte, chunk *roaring64.Bitmap) error {
		keys = append(keys, chunkKey)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, LastChunkKey(key), keys[0])
}
