package changeset

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/erigondata/erigondb/kv"
)

// PutAccountChange records the pre-change encoding of an account for a
// block. An empty prev means the account did not exist before the block.
func PutAccountChange(tx kv.Putter, blockNumber uint64, address common.Address, prev []byte) error {
	return kv.Put(tx, kv.AccountChangeSet.Table, blockNumber, kv.AccountChange{
		Address: address,
		Account: prev,
	})
}

// FindAccount looks up the pre-change account encoding in the block's
// change-set. SeekBothRange can land on a later address at the same block,
// so a prefix check decides between hit and miss.
func FindAccount(tx kv.Getter, blockNumber uint64, address common.Address) ([]byte, bool, error) {
	c, err := kv.NewDupCursor(tx, kv.AccountChangeSet)
	if err != nil {
		return nil, false, err
	}
	defer c.Close()

	ch, ok, err := c.SeekBothRange(blockNumber, address)
	if err != nil || !ok {
		return nil, false, err
	}
	if ch.Address != address {
		return nil, false, nil
	}
	return ch.Account, true, nil
}
