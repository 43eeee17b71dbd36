package rawdb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/erigondata/erigondb/core/types/accounts"
	"github.com/erigondata/erigondb/kv"
)

func ReadAccount(tx kv.Getter, address common.Address) (*accounts.Account, bool, error) {
	return kv.Get(tx, kv.PlainState, address)
}

func WriteAccount(tx kv.Putter, address common.Address, account *accounts.Account) error {
	return kv.Put(tx, kv.PlainState, address, account)
}

// ReadStorage returns the current value of one storage slot. An unset slot
// is an ordinary miss, never a zero value.
func ReadStorage(tx kv.Getter, address common.Address, incarnation uint64, location common.Hash) (*uint256.Int, bool, error) {
	c, err := kv.NewDupCursor(tx, kv.PlainStorage)
	if err != nil {
		return nil, false, err
	}
	defer c.Close()

	entry, ok, err := c.SeekBothRange(kv.StorageKey{Address: address, Incarnation: incarnation}, location)
	if err != nil || !ok {
		return nil, false, err
	}
	if entry.Location != location {
		return nil, false, nil
	}
	return &entry.Value, true, nil
}

func WriteStorage(tx kv.Putter, address common.Address, incarnation uint64, location common.Hash, value *uint256.Int) error {
	return kv.Put(tx, kv.PlainStorage.Table, kv.StorageKey{Address: address, Incarnation: incarnation}, kv.StorageEntry{
		Location: location,
		Value:    *value,
	})
}

func ReadCode(tx kv.Getter, codeHash common.Hash) ([]byte, bool, error) {
	return kv.Get(tx, kv.Code, codeHash)
}

func WriteCode(tx kv.Putter, codeHash common.Hash, code []byte) error {
	return kv.Put(tx, kv.Code, codeHash, code)
}

// ReadPlainCodeHash resolves the code hash of a contract incarnation from
// the plain-state side table.
func ReadPlainCodeHash(tx kv.Getter, address common.Address, incarnation uint64) (common.Hash, bool, error) {
	return kv.Get(tx, kv.PlainCodeHash, kv.StorageKey{Address: address, Incarnation: incarnation})
}

func WritePlainCodeHash(tx kv.Putter, address common.Address, incarnation uint64, codeHash common.Hash) error {
	return kv.Put(tx, kv.PlainCodeHash, kv.StorageKey{Address: address, Incarnation: incarnation}, codeHash)
}

// ReadIncarnation returns the incarnation a re-created contract at address
// would get. Misses mean the address never self-destructed.
func ReadIncarnation(tx kv.Getter, address common.Address) (uint64, bool, error) {
	return kv.Get(tx, kv.IncarnationMap, address)
}

func WriteIncarnation(tx kv.Putter, address common.Address, incarnation uint64) error {
	return kv.Put(tx, kv.IncarnationMap, address, incarnation)
}

func ReadHashedAccount(tx kv.Getter, addressHash common.Hash) (*accounts.Account, bool, error) {
	return kv.Get(tx, kv.HashedAccounts, addressHash)
}

func WriteHashedAccount(tx kv.Putter, addressHash common.Hash, account *accounts.Account) error {
	return kv.Put(tx, kv.HashedAccounts, addressHash, account)
}

func ReadHashedStorage(tx kv.Getter, addressHash common.Hash, incarnation uint64, locationHash common.Hash) (*uint256.Int, bool, error) {
	c, err := kv.NewDupCursor(tx, kv.HashedStorage)
	if err != nil {
		return nil, false, err
	}
	defer c.Close()

	entry, ok, err := c.SeekBothRange(kv.HashedStorageKey{AddressHash: addressHash, Incarnation: incarnation}, locationHash)
	if err != nil || !ok {
		return nil, false, err
	}
	if entry.Location != locationHash {
		return nil, false, nil
	}
	return &entry.Value, true, nil
}

func WriteHashedStorage(tx kv.Putter, addressHash common.Hash, incarnation uint64, locationHash common.Hash, value *uint256.Int) error {
	return kv.Put(tx, kv.HashedStorage.Table, kv.HashedStorageKey{AddressHash: addressHash, Incarnation: incarnation}, kv.StorageEntry{
		Location: locationHash,
		Value:    *value,
	})
}

// ReadHashedCodeHash is the hashed-state counterpart of ReadPlainCodeHash.
func ReadHashedCodeHash(tx kv.Getter, addressHash common.Hash, incarnation uint64) (common.Hash, bool, error) {
	return kv.Get(tx, kv.HashedCodeHash, kv.HashedStorageKey{AddressHash: addressHash, Incarnation: incarnation})
}

func WriteHashedCodeHash(tx kv.Putter, addressHash common.Hash, incarnation uint64, codeHash common.Hash) error {
	return kv.Put(tx, kv.HashedCodeHash, kv.HashedStorageKey{AddressHash: addressHash, Incarnation: incarnation}, codeHash)
}
