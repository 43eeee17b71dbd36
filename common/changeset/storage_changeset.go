package changeset

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/erigondata/erigondb/kv"
)

// PutStorageChange records the pre-change value of a storage slot for a
// block. An empty prev means the slot was unset.
func PutStorageChange(tx kv.Putter, blockNumber uint64, storageKey kv.StorageKey, location common.Hash, prev []byte) error {
	return kv.Put(tx, kv.StorageChangeSet.Table, kv.StorageCSKey{Number: blockNumber, K: storageKey}, kv.StorageChange{
		Location: location,
		Value:    prev,
	})
}

// FindStorage looks up the pre-change value of a slot in the block's
// change-set.
func FindStorage(tx kv.Getter, blockNumber uint64, storageKey kv.StorageKey, location common.Hash) ([]byte, bool, error) {
	c, err := kv.NewDupCursor(tx, kv.StorageChangeSet)
	if err != nil {
		return nil, false, err
	}
	defer c.Close()

	ch, ok, err := c.SeekBothRange(kv.StorageCSKey{Number: blockNumber, K: storageKey}, location)
	if err != nil || !ok {
		return nil, false, err
	}
	if ch.Location != location {
		return nil, false, nil
	}
	return ch.Value, true, nil
}
