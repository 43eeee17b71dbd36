package changeset

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/ethereum/go-ethereum/common"

	"github.com/erigondata/erigondb/common/dbutils"
	"github.com/erigondata/erigondb/kv"
	"github.com/erigondata/erigondb/kv/bitmapdb"
)

// Mapper ties a change-set table to its history index: how to build index
// chunk keys for a plain-state key, and how to find the pre-change value in
// a block's change-set. The plain-state key is raw here (20 bytes for an
// account, address+incarnation+slot for storage) because the history index
// and the callers in core/state work at that level.
type Mapper struct {
	IndexTable    kv.Table[[]byte, []byte]
	IndexChunkKey func(key []byte, blockNumber uint64) []byte
	Find          func(tx kv.Getter, blockNumber uint64, key []byte) ([]byte, bool, error)
}

var Mappers = map[string]Mapper{
	kv.AccountChangeSetName: {
		IndexTable:    kv.AccountsHistory,
		IndexChunkKey: dbutils.AccountIndexChunkKey,
		Find: func(tx kv.Getter, blockNumber uint64, key []byte) ([]byte, bool, error) {
			if len(key) != common.AddressLength {
				return nil, false, fmt.Errorf("account changeset key must be %d bytes, got %d", common.AddressLength, len(key))
			}
			return FindAccount(tx, blockNumber, common.BytesToAddress(key))
		},
	},
	kv.StorageChangeSetName: {
		IndexTable:    kv.StorageHistory,
		IndexChunkKey: dbutils.StorageIndexChunkKey,
		Find: func(tx kv.Getter, blockNumber uint64, key []byte) ([]byte, bool, error) {
			const compositeLen = common.AddressLength + dbutils.IncarnationLength + common.HashLength
			if len(key) != compositeLen {
				return nil, false, fmt.Errorf("storage changeset key must be %d bytes, got %d", compositeLen, len(key))
			}
			addr, inc, loc := dbutils.PlainParseCompositeStorageKey(key)
			return FindStorage(tx, blockNumber, kv.StorageKey{Address: addr, Incarnation: inc}, loc)
		},
	},
}

// WriteIndex stores the history-index bitmap for one plain-state key,
// chunked with the terminator convention the readers expect. key uses the
// same raw form Mapper.Find takes.
func WriteIndex(tx kv.Putter, csTable string, key []byte, blocks *roaring64.Bitmap) error {
	m, ok := Mappers[csTable]
	if !ok {
		return fmt.Errorf("no index mapper for table %s", csTable)
	}
	material := m.IndexChunkKey(key, 0)
	material = material[:len(material)-dbutils.NumberLength]
	return bitmapdb.PutBitmap64(tx, m.IndexTable, material, blocks)
}
