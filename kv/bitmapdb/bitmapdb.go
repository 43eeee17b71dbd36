// Package bitmapdb stores roaring bitmaps in ordinary tables, sharded into
// size-bounded chunks. A chunk's key is the index key plus the chunk's
// highest set bit as big-endian uint64; the final chunk carries 0xff..ff so
// a range seek from any target block always lands on the chunk that could
// contain it.
package bitmapdb

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/erigondata/erigondb/kv"
)

// ChunkLimit bounds the serialized size of one chunk so a chunk row stays
// within mdbx's optimal leaf-page fit.
const ChunkLimit = uint64(1950)

// SeekInBitmap64 returns the smallest set bit >= n. The bitmap encodes the
// blocks at which a key changed, so this is "the first change at or after n".
func SeekInBitmap64(m *roaring64.Bitmap, n uint64) (uint64, bool) {
	if m.IsEmpty() {
		return 0, false
	}
	if n == 0 {
		return m.Minimum(), true
	}
	searchRank := m.Rank(n - 1)
	if searchRank >= m.GetCardinality() {
		return 0, false
	}
	found, _ := m.Select(searchRank)
	return found, true
}

// ReadBitmap64 deserializes one stored chunk.
func ReadBitmap64(data []byte) (*roaring64.Bitmap, error) {
	m := roaring64.New()
	if _, err := m.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return m, nil
}

// Get64 unions every chunk stored under key.
func Get64(tx kv.Getter, table kv.Table[[]byte, []byte], key []byte) (*roaring64.Bitmap, error) {
	c, err := kv.NewCursor(tx, table)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	out := roaring64.New()
	k, v, ok, err := c.Seek(key)
	for {
		if err != nil {
			return nil, err
		}
		if !ok || !bytes.HasPrefix(k, key) {
			break
		}
		m, err := ReadBitmap64(v)
		if err != nil {
			return nil, err
		}
		out.Or(m)
		k, v, ok, err = c.Next()
	}
	return out, nil
}

// ChunkKey appends the shard id to the index key.
func ChunkKey(key []byte, shard uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, key...), shard)
}

// LastChunkKey is the terminator form every index key's final chunk uses.
func LastChunkKey(key []byte) []byte {
	return ChunkKey(key, ^uint64(0))
}

// CutLeft64 splits off the left-most part of bm whose serialized size fits
// sizeLimit, removing it from bm. Returns nil once bm is empty.
func CutLeft64(bm *roaring64.Bitmap, sizeLimit uint64) *roaring64.Bitmap {
	if bm.GetCardinality() == 0 {
		return nil
	}
	sz := bm.GetSerializedSizeInBytes()
	if sz <= sizeLimit {
		lft := roaring64.New()
		lft.AddRange(bm.Minimum(), bm.Maximum()+1)
		lft.And(bm)
		bm.Clear()
		return lft
	}

	from := bm.Minimum()
	minMax := bm.Maximum() - bm.Minimum()
	to := sort.Search(int(minMax), func(i int) bool {
		lft := roaring64.New()
		lft.AddRange(from, from+uint64(i)+1)
		lft.And(bm)
		return lft.GetSerializedSizeInBytes() > sizeLimit
	})

	lft := roaring64.New()
	lft.AddRange(from, from+uint64(to))
	lft.And(bm)
	bm.RemoveRange(from, from+uint64(to))
	return lft
}

// WalkChunkWithKeys64 feeds f the chunked form of m under key. Every chunk
// except the last is keyed by its own maximum; the last carries the 0xff..ff
// terminator, whatever its maximum is.
func WalkChunkWithKeys64(key []byte, m *roaring64.Bitmap, sizeLimit uint64, f func(chunkKey []byte, chunk *roaring64.Bitmap) error) error {
	for {
		chunk := CutLeft64(m, sizeLimit)
		if chunk == nil {
			return nil
		}
		var chunkKey []byte
		if m.GetCardinality() == 0 {
			chunkKey = LastChunkKey(key)
		} else {
			chunkKey = ChunkKey(key, chunk.Maximum())
		}
		if err := f(chunkKey, chunk); err != nil {
			return err
		}
	}
}

// PutBitmap64 replaces the chunks stored under key with the chunked form
// of m.
func PutBitmap64(tx kv.Putter, table kv.Table[[]byte, []byte], key []byte, m *roaring64.Bitmap) error {
	return WalkChunkWithKeys64(key, m, ChunkLimit, func(chunkKey []byte, chunk *roaring64.Bitmap) error {
		chunk.RunOptimize()
		buf := bytes.NewBuffer(nil)
		if _, err := chunk.WriteTo(buf); err != nil {
			return err
		}
		return kv.Put(tx, table, chunkKey, buf.Bytes())
	})
}
